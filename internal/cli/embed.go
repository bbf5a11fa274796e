package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/embedd-dev/embedd/internal/service"
)

// previewComponents is how many vector components the table output shows.
const previewComponents = 4

type embedOptions struct {
	query bool
	stdin bool
	wait  bool
}

func newEmbedCommand(opts *rootOptions) *cobra.Command {
	eopts := &embedOptions{}

	cmd := &cobra.Command{
		Use:   "embed [TEXT...]",
		Short: "Embed texts",
		Long: `Send texts to POST /embed and print the vectors.

Each argument is one text. With --stdin, every non-empty input line is
one text. --query applies the retrieval query prompt on the server.

Examples:
  embedctl embed "A man is eating a piece of bread"
  embedctl embed --query "What is he eating?" --json
  cat sentences.txt | embedctl embed --stdin --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmbed(cmd, opts, eopts, args)
		},
	}

	cmd.Flags().BoolVarP(&eopts.query, "query", "q", false, "embed the texts as retrieval queries")
	cmd.Flags().BoolVar(&eopts.stdin, "stdin", false, "read texts from stdin, one per line")
	cmd.Flags().BoolVar(&eopts.wait, "wait", false, "retry while the model is loading")
	return cmd
}

func runEmbed(cmd *cobra.Command, opts *rootOptions, eopts *embedOptions, args []string) error {
	texts := args
	if eopts.stdin {
		lines, err := readLines(cmd.InOrStdin())
		if err != nil {
			return WrapError(err, "Failed to read stdin", "")
		}
		texts = append(texts, lines...)
	}
	if len(texts) == 0 {
		return NewCLIError("No texts to embed", "Pass texts as arguments or use --stdin")
	}

	c := opts.client()
	req := service.EmbedRequest{Text: service.Texts(texts...), IsQuery: eopts.query}

	var (
		resp *service.EmbedResponse
		err  error
	)
	ctx := cmd.Context()
	start := time.Now()
	if eopts.wait {
		resp, err = c.EmbedWithRetry(ctx, req)
	} else {
		resp, err = c.Embed(ctx, req)
	}
	if err != nil {
		return classifyError(opts.url, err)
	}

	out := opts.output(cmd)
	if opts.jsonOutput {
		return out.JSON(resp)
	}

	rows := make([][]string, len(resp.Embeddings))
	for i, vec := range resp.Embeddings {
		rows[i] = []string{strconv.Itoa(i), strconv.Itoa(len(vec)), preview(vec), truncate(texts[i], 40)}
	}
	out.Table([]string{"#", "DIMS", "VECTOR", "TEXT"}, rows)
	out.Info("%d embedding(s) in %s", len(resp.Embeddings), time.Since(start).Round(time.Millisecond))
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func preview(vec []float32) string {
	n := len(vec)
	if n > previewComponents {
		n = previewComponents
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.FormatFloat(float64(vec[i]), 'f', 4, 32)
	}
	s := "[" + strings.Join(parts, ", ")
	if len(vec) > n {
		s += ", ..."
	}
	return s + "]"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:max-3]))
}
