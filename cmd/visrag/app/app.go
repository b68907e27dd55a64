// Package app assembles the visrag command line interface.
package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kart-io/visrag/cmd/visrag/app/options"
	"github.com/kart-io/visrag/internal/rag/biz"
	"github.com/kart-io/visrag/internal/rag/store"
	"github.com/kart-io/visrag/pkg/app"
	"github.com/kart-io/visrag/pkg/llm/colpali"
	"github.com/kart-io/visrag/pkg/llm/qwenvl"
	"github.com/kart-io/visrag/pkg/render/poppler"
)

const (
	// Name is the name of the application.
	Name = "visrag"

	commandDesc = `visrag answers natural-language questions about PDF documents using
both their textual and visual content.

Documents are rasterized page by page, embedded with a ColPali-style
multi-vector retrieval model, and indexed locally. Questions retrieve the
most relevant pages by late-interaction scoring and a vision-language model
generates the answer from the page images.`
)

// NewApp creates the visrag application with its subcommands.
func NewApp() *app.App {
	opts := options.NewOptions()
	a := app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Multimodal question answering over PDF documents"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
	)

	a.AddCommand(
		newIndexCommand(opts),
		newAskCommand(opts),
		newStatsCommand(opts),
	)
	return a
}

// newService wires the pipeline from the resolved options. The returned
// cleanup closes the index store.
func newService(opts *options.Options) (*biz.Service, func(), error) {
	if err := opts.LogOptions.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	pageStore, err := store.Open(opts.RAGOptions.IndexPath, opts.EmbeddingOptions.Model)
	if err != nil {
		return nil, nil, err
	}

	lowMemory := opts.RAGOptions.LowMemory
	svc := biz.NewService(
		pageStore,
		colpali.New(opts.EmbeddingOptions, lowMemory),
		qwenvl.New(opts.VLMOptions, lowMemory),
		poppler.New(opts.RenderOptions),
		&biz.Config{
			ImageDir:       opts.RAGOptions.ImageDir,
			TopK:           opts.RAGOptions.TopK,
			MaxTokens:      opts.RAGOptions.MaxTokens,
			EmbedBatchSize: opts.RAGOptions.EmbedBatchSize,
			RenderWorkers:  opts.RenderOptions.Workers,
			LowMemory:      lowMemory,
		},
	)

	cleanup := func() { _ = pageStore.Close() }
	return svc, cleanup, nil
}

// newIndexCommand builds the `visrag index` subcommand.
func newIndexCommand(opts *options.Options) *cobra.Command {
	var (
		folder    string
		files     []string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index PDF documents for retrieval",
		Long: `Index renders each PDF page to an image, embeds it with the retrieval
model, and stores the records in the local index. A document that fails is
skipped and reported; the rest of the batch continues.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := newService(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.IndexDocuments(cmd.Context(), folder, files, overwrite)
			if err != nil {
				return err
			}

			cmd.Printf("Indexed %d documents (%d pages)\n", report.Indexed, report.Pages)
			for _, skipped := range report.Skipped {
				cmd.Printf("Skipped %s: %s\n", skipped.Path, skipped.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Folder containing PDF documents.")
	cmd.Flags().StringSliceVar(&files, "files", nil, "Explicit PDF files to index.")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace documents already in the index.")
	return cmd
}

// newAskCommand builds the `visrag ask` subcommand.
func newAskCommand(opts *options.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			answer, err := svc.AnswerQuestion(cmd.Context(), args[0], opts.RAGOptions.TopK, opts.RAGOptions.MaxTokens)
			if err != nil {
				return err
			}

			cmd.Println(answer.Text)
			cmd.Println()
			for _, src := range answer.Sources {
				cmd.Printf("  source: %s page %d (score %.2f)\n", src.DocumentID, src.PageNumber, src.Score)
			}
			return nil
		},
	}
	return cmd
}

// newStatsCommand builds the `visrag stats` subcommand.
func newStatsCommand(opts *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := newService(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}

			cmd.Printf("documents:       %v\n", stats["documents"])
			cmd.Printf("pages:           %v\n", stats["pages"])
			cmd.Printf("embedding model: %v\n", stats["embedding_model"])
			cmd.Printf("vlm model:       %v\n", stats["vlm_model"])
			return nil
		},
	}
}
