package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"medrag/internal/domain"
)

var (
	searchText   string
	searchTopK   int
	searchJSON   bool
	searchDomain string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query one domain index directly",
	Long: `Search a persisted domain index for the passages closest to a query,
without involving the language model. Useful to check what a tool would
retrieve.

Examples:
  medrag search -q "amoxicillin dosage" -D who
  medrag search -q "tumour lysis syndrome" -D oncology -k 5 --json`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().StringVarP(&searchDomain, "domain", "D", "who", "domain id to search")
	_ = searchCmd.MarkFlagRequired("query")
}

type searchResult struct {
	Source string  `json:"source"`
	Page   string  `json:"page,omitempty"`
	Chunk  int     `json:"chunk"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ix, err := loadIndex(cfg, searchDomain)
	if err != nil {
		return err
	}

	topK := cfg.Retrieval.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	hits, err := ix.Query(cmd.Context(), searchText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]searchResult, len(hits))
	for i, h := range hits {
		results[i] = searchResult{
			Source: h.Chunk.Source(),
			Page:   h.Chunk.Metadata[domain.MetaPage],
			Chunk:  h.Chunk.Index,
			Score:  h.Score,
			Text:   h.Chunk.Text,
		}
	}

	if searchJSON {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results in %s for: %s\n\n", len(results), searchDomain, searchText)
	for i, r := range results {
		location := filepath.Base(r.Source)
		if r.Page != "" {
			location += " p." + r.Page
		}
		fmt.Printf("--- [%d] %s #%d (score: %.3f) ---\n", i+1, location, r.Chunk, r.Score)
		// Truncate long text for display
		text := []rune(r.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	return nil
}
