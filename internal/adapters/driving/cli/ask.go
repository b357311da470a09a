package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question over the indexed documents",
	Long: `Retrieves the most relevant chunks from the index and generates an
answer grounded in them. The answer always cites its sources; when the
index holds no supporting evidence the tool says so instead of guessing.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	k := askTopK
	if k <= 0 {
		k = topK()
	}

	answer, err := answerService.Ask(context.Background(), args[0], k)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	return outputAnswerText(cmd, answer)
}

// answerJSON is the machine-readable output shape.
type answerJSON struct {
	Answer  string       `json:"answer"`
	Sources []sourceJSON `json:"sources"`
}

type sourceJSON struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Excerpt string `json:"excerpt"`
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	out := answerJSON{Answer: answer.Text, Sources: []sourceJSON{}}
	for _, rec := range answer.Sources {
		out.Sources = append(out.Sources, sourceJSON{
			Source:  rec.Metadata.Source,
			Type:    string(rec.Metadata.Type),
			Excerpt: excerpt(rec.Content),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) error {
	cmd.Println(answer.Text)

	if answer.Refused() || len(answer.Sources) == 0 {
		return nil
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i, rec := range answer.Sources {
		cmd.Printf("  [%d] %s (%s)\n", i+1, rec.Metadata.Source, rec.Metadata.Type)
		cmd.Printf("      %s\n", excerpt(rec.Content))
	}
	return nil
}

// excerpt flattens a chunk to a single preview line.
func excerpt(content string) string {
	const limit = 160
	flat := strings.Join(strings.Fields(content), " ")
	if len(flat) > limit {
		flat = flat[:limit] + "…"
	}
	return flat
}
