package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"medrag/internal/usecase"
)

var (
	promptQuery  string
	promptDomain string
	promptTopK   int
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the grounded-answer prompt a tool would send",
	Long: `Retrieve passages for a question from one domain index and print the
prompt the retrieval tool would send to the language model, for manual
inspection or for pasting into another model.

Examples:
  medrag prompt -q "What is amoxicillin used for?" -D who
  medrag prompt -q "doxorubicin cardiotoxicity" -D oncology -k 5`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "question (required)")
	promptCmd.Flags().StringVarP(&promptDomain, "domain", "D", "who", "domain id")
	promptCmd.Flags().IntVarP(&promptTopK, "top-k", "k", 0, "number of passages (default from config)")
	_ = promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ix, err := loadIndex(cfg, promptDomain)
	if err != nil {
		return err
	}

	topK := cfg.Retrieval.TopK
	if promptTopK > 0 {
		topK = promptTopK
	}

	prompt, _, err := usecase.AnswerPrompt(cmd.Context(), ix, promptQuery, topK)
	if err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}
	fmt.Println(prompt)
	return nil
}
