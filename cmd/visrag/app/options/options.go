// Package options contains flags and options for the visrag CLI.
package options

import (
	"errors"

	"github.com/spf13/pflag"

	embedopts "github.com/kart-io/visrag/pkg/options/embedding"
	logopts "github.com/kart-io/visrag/pkg/options/logger"
	ragopts "github.com/kart-io/visrag/pkg/options/rag"
	renderopts "github.com/kart-io/visrag/pkg/options/render"
	vlmopts "github.com/kart-io/visrag/pkg/options/vlm"
)

// Options contains the configuration options for the CLI.
type Options struct {
	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// EmbeddingOptions contains embedding service client configuration.
	EmbeddingOptions *embedopts.Options `json:"embedding" mapstructure:"embedding"`

	// VLMOptions contains generation service client configuration.
	VLMOptions *vlmopts.Options `json:"vlm" mapstructure:"vlm"`

	// RenderOptions contains PDF renderer configuration.
	RenderOptions *renderopts.Options `json:"render" mapstructure:"render"`

	// RAGOptions contains pipeline-level configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:",squash"`
}

// NewOptions creates an Options instance with default values.
func NewOptions() *Options {
	return &Options{
		LogOptions:       logopts.NewOptions(),
		EmbeddingOptions: embedopts.NewOptions(),
		VLMOptions:       vlmopts.NewOptions(),
		RenderOptions:    renderopts.NewOptions(),
		RAGOptions:       ragopts.NewOptions(),
	}
}

// AddFlags adds all option flags to the given flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.LogOptions.AddFlags(fs)
	o.EmbeddingOptions.AddFlags(fs)
	o.VLMOptions.AddFlags(fs)
	o.RenderOptions.AddFlags(fs)
	o.RAGOptions.AddFlags(fs)
}

// Complete completes all the required options.
func (o *Options) Complete() error {
	return nil
}

// Validate checks whether the options are valid.
func (o *Options) Validate() error {
	var errs []error

	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.VLMOptions.Validate()...)
	errs = append(errs, o.RenderOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)

	return errors.Join(errs...)
}
