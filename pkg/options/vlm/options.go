// Package vlm provides configuration options for the vision-language
// generation service client.
package vlm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/visrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains vision-language model client configuration.
type Options struct {
	// BaseURL is the generation server base URL (Ollama-compatible API).
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Model is the vision-language model used for answer generation.
	Model string `json:"model" mapstructure:"model"`

	// Timeout for API requests. Generation over several page images is slow.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the maximum number of retries for failed requests.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		BaseURL:    "http://localhost:11434",
		Model:      "qwen2-vl:7b",
		Timeout:    600 * time.Second,
		MaxRetries: 3,
	}
}

// AddFlags adds flags for VLM options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"vlm.base-url", o.BaseURL, "Generation server base URL.")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"vlm.model", o.Model, "Vision-language model for answers.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"vlm.timeout", o.Timeout, "Generation request timeout.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"vlm.max-retries", o.MaxRetries, "Max retries for failed generation requests.")
}

// Validate validates the VLM options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("vlm base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("vlm model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("vlm timeout must be positive"))
	}
	return errs
}
