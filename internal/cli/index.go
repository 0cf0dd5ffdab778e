package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"medrag/internal/usecase"
)

var (
	indexForce  bool
	indexDomain string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the per-domain embedding indices",
	Long: `Ingest each domain's corpus directory (PDF, text and markdown files),
split it into overlapping chunks, embed them and persist one index per domain.

Existing indices are kept unless --force is given. An index that cannot be
read, or was built with a different embedder, is reported as an error and
must be rebuilt with --force.

Examples:
  medrag index                      # Build missing indices
  medrag index --force              # Rebuild every index
  medrag index --force -D oncology  # Rebuild one domain`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "rebuild even if an index exists")
	indexCmd.Flags().StringVarP(&indexDomain, "domain", "D", "", "only index this domain id")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	targets, err := indexTargets(cfg, indexDomain)
	if err != nil {
		return err
	}

	// Domains are built one after another so each gets its own bar.
	var (
		bar       *progressbar.ProgressBar
		startTime time.Time
	)
	progress := func(domainID string, done, total int) {
		if bar == nil {
			startTime = time.Now()
			bar = newProgressBar(total, domainID)
		}
		_ = bar.Set(done)

		if done > 0 {
			rate := float64(done) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding %s[reset] ETA: %s", domainID, formatDuration(eta)))
			}
		}
	}

	indexUC, err := newIndexUseCase(cfg, logger, usecase.WithBuildProgress(progress))
	if err != nil {
		return err
	}

	for _, target := range targets {
		bar = nil
		fmt.Printf("Indexing domain %s...\n", target.DomainID)

		start := time.Now()
		ix, err := indexUC.Ensure(cmd.Context(), target, indexForce)
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}

		meta := ix.Meta()
		fmt.Printf("  Chunks:    %d\n", ix.Len())
		fmt.Printf("  Embedder:  %s (%d dims)\n", meta.Model, meta.Dimension)
		fmt.Printf("  Built at:  %s\n", meta.BuiltAt.Local().Format(time.RFC3339))
		fmt.Printf("  Elapsed:   %s\n", formatDuration(time.Since(start)))
		fmt.Printf("  Stored at: %s\n\n", target.Path)
	}
	return nil
}

func newProgressBar(total int, domainID string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Embedding %s[reset]", domainID)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
