package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"medrag/internal/domain"
)

var (
	askQuestion string
	askTrace    bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question with the agent",
	Long: `Run the reasoning agent on a single question and print its answer.
Missing indices are built first.

Examples:
  medrag ask -q "What is amoxicillin used for?"
  medrag ask -q "How is febrile neutropenia managed?" --trace`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().BoolVar(&askTrace, "trace", false, "print the reasoning transcript")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")
	_ = askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	agent, err := newAgent(cmd.Context(), GetConfig(), logger)
	if err != nil {
		return err
	}

	result, runErr := agent.Run(cmd.Context(), askQuestion)
	if err := writeAskResult(cmd.OutOrStdout(), result, askJSON, askTrace); err != nil {
		return err
	}
	return runErr
}

// writeAskResult prints a run's answer, transcript or JSON form. Run errors
// are left to cobra, which prints them once on stderr.
func writeAskResult(w io.Writer, result *domain.AgentResult, asJSON, trace bool) error {
	if result == nil {
		return nil
	}

	if asJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	if trace {
		printTranscript(w, result)
	}
	if result.Done() {
		fmt.Fprintln(w, result.Output)
	}
	return nil
}

func printTranscript(w io.Writer, result *domain.AgentResult) {
	fmt.Fprintf(w, "Run %s (%d iterations)\n\n", result.RunID, result.Iterations)
	for i, step := range result.Transcript {
		fmt.Fprintf(w, "--- step %d ---\n", i+1)
		if step.Thought != "" {
			fmt.Fprintf(w, "Thought: %s\n", step.Thought)
		}
		if step.Action != "" {
			fmt.Fprintf(w, "Action: %s\n", step.Action)
			fmt.Fprintf(w, "Action Input: %s\n", step.ActionInput)
		}
		fmt.Fprintf(w, "Observation: %s\n\n", step.Observation)
	}
	if result.Reason != "" {
		fmt.Fprintf(w, "Failed: %s\n\n", result.Reason)
	}
}
