// Package options defines the generic options interface shared by all
// per-concern option packages.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group.
type IOptions interface {
	// Validate validates the options. It may also complete them.
	Validate() []error

	// AddFlags registers the group's flags on the given flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join concatenates prefixes with "." and appends a trailing "." when the
// result is non-empty, producing flag names like "embedding.base-url".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}
