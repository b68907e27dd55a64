package rag_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/visrag/pkg/options/rag"
)

func TestDefaultOptionsAreValid(t *testing.T) {
	opts := rag.NewOptions()
	assert.Empty(t, opts.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*rag.Options)
		wantErrs int
	}{
		{
			name:     "missing index path",
			mutate:   func(o *rag.Options) { o.IndexPath = "" },
			wantErrs: 1,
		},
		{
			name:     "missing image dir",
			mutate:   func(o *rag.Options) { o.ImageDir = "" },
			wantErrs: 1,
		},
		{
			name:     "non-positive top-k",
			mutate:   func(o *rag.Options) { o.TopK = 0 },
			wantErrs: 1,
		},
		{
			name:     "non-positive max tokens",
			mutate:   func(o *rag.Options) { o.MaxTokens = -1 },
			wantErrs: 1,
		},
		{
			name:     "non-positive batch size",
			mutate:   func(o *rag.Options) { o.EmbedBatchSize = 0 },
			wantErrs: 1,
		},
		{
			name: "everything wrong",
			mutate: func(o *rag.Options) {
				o.IndexPath = ""
				o.ImageDir = ""
				o.TopK = 0
				o.MaxTokens = 0
				o.EmbedBatchSize = 0
			},
			wantErrs: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := rag.NewOptions()
			tt.mutate(opts)
			assert.Len(t, opts.Validate(), tt.wantErrs)
		})
	}
}

func TestAddFlagsOverridesDefaults(t *testing.T) {
	opts := rag.NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--index-path=/data/visrag.db",
		"--top-k=5",
		"--low-memory",
	}))

	assert.Equal(t, "/data/visrag.db", opts.IndexPath)
	assert.Equal(t, 5, opts.TopK)
	assert.True(t, opts.LowMemory)
	// Untouched flags keep their defaults.
	assert.Equal(t, 500, opts.MaxTokens)
}
