// Package render provides configuration options for PDF page rendering.
package render

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/visrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains PDF renderer configuration.
type Options struct {
	// Binary is the pdftoppm executable to invoke.
	Binary string `json:"binary" mapstructure:"binary"`

	// DPI is the rendering resolution.
	DPI int `json:"dpi" mapstructure:"dpi"`

	// Workers is the number of documents rendered concurrently ahead of the
	// embedding stage. Rendering is CPU-bound and does not touch the
	// accelerator, so a small pool keeps it saturated.
	Workers int `json:"workers" mapstructure:"workers"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Binary:  "pdftoppm",
		DPI:     150,
		Workers: 2,
	}
}

// AddFlags adds flags for render options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Binary, options.Join(prefixes...)+"render.binary", o.Binary, "pdftoppm executable used to rasterize PDF pages.")
	fs.IntVar(&o.DPI, options.Join(prefixes...)+"render.dpi", o.DPI, "Rendering resolution in DPI.")
	fs.IntVar(&o.Workers, options.Join(prefixes...)+"render.workers", o.Workers, "Documents rendered concurrently ahead of embedding.")
}

// Validate validates the render options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Binary == "" {
		errs = append(errs, fmt.Errorf("render binary is required"))
	}
	if o.DPI <= 0 {
		errs = append(errs, fmt.Errorf("render dpi must be positive"))
	}
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("render workers must be positive"))
	}
	return errs
}
