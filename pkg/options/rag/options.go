// Package rag provides retrieval and generation pipeline options.
package rag

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/visrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains pipeline-level configuration.
type Options struct {
	// IndexPath is the SQLite index database file.
	IndexPath string `json:"index-path" mapstructure:"index-path"`

	// ImageDir is the directory holding rendered page images referenced by
	// the index.
	ImageDir string `json:"image-dir" mapstructure:"image-dir"`

	// TopK is the default number of pages retrieved per question.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MaxTokens is the default answer length bound.
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	// EmbedBatchSize is the number of page images embedded per request.
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// LowMemory trades latency for reduced peak accelerator memory: batch
	// size drops to 1 and reduced precision is requested from the services.
	LowMemory bool `json:"low-memory" mapstructure:"low-memory"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		IndexPath:      "./index/visrag.db",
		ImageDir:       "./index/pages",
		TopK:           3,
		MaxTokens:      500,
		EmbedBatchSize: 4,
	}
}

// AddFlags adds flags for pipeline options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.IndexPath, options.Join(prefixes...)+"index-path", o.IndexPath, "Path to the index database file.")
	fs.StringVar(&o.ImageDir, options.Join(prefixes...)+"image-dir", o.ImageDir, "Directory for rendered page images.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"top-k", o.TopK, "Default number of pages retrieved per question.")
	fs.IntVar(&o.MaxTokens, options.Join(prefixes...)+"max-tokens", o.MaxTokens, "Default maximum tokens in a generated answer.")
	fs.IntVar(&o.EmbedBatchSize, options.Join(prefixes...)+"embed-batch-size", o.EmbedBatchSize, "Page images embedded per request.")
	fs.BoolVar(&o.LowMemory, options.Join(prefixes...)+"low-memory", o.LowMemory, "Reduce peak accelerator memory at the cost of latency.")
}

// Validate validates the pipeline options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.IndexPath == "" {
		errs = append(errs, fmt.Errorf("index-path is required"))
	}
	if o.ImageDir == "" {
		errs = append(errs, fmt.Errorf("image-dir is required"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max-tokens must be positive"))
	}
	if o.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embed-batch-size must be positive"))
	}
	return errs
}
