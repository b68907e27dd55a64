// Package embedding provides configuration options for the page embedding
// service client.
package embedding

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/visrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains embedding service client configuration.
type Options struct {
	// BaseURL is the embedding server base URL.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Model is the retrieval model identifier. It is recorded in the index
	// and must match at query time.
	Model string `json:"model" mapstructure:"model"`

	// Timeout for API requests.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the maximum number of retries for failed requests.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		BaseURL:    "http://localhost:7861",
		Model:      "vidore/colpali-v1.2",
		Timeout:    300 * time.Second,
		MaxRetries: 3,
	}
}

// AddFlags adds flags for embedding options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"embedding.base-url", o.BaseURL, "Embedding server base URL.")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"embedding.model", o.Model, "Retrieval model identifier.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"embedding.timeout", o.Timeout, "Embedding request timeout.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"embedding.max-retries", o.MaxRetries, "Max retries for failed embedding requests.")
}

// Validate validates the embedding options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("embedding base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("embedding model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("embedding timeout must be positive"))
	}
	return errs
}
