package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/retrieval"
)

const snippetLen = 240

// Config controls the interactive loop's output.
type Config struct {
	HideSource bool // suppress source attribution after each answer
	MuteStream bool // print the answer in one piece instead of streaming
	Input      io.Reader
	Output     io.Writer
}

// Loop is the interactive question loop: retrieve, generate, attribute.
// It ends only on the "exit" sentinel. Per-query failures are reported
// inline and the loop keeps going.
type Loop struct {
	config    Config
	engine    *retrieval.Engine
	generator types.Generator
}

func New(config Config, engine *retrieval.Engine, generator types.Generator) *Loop {
	if config.Input == nil {
		config.Input = os.Stdin
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Loop{config: config, engine: engine, generator: generator}
}

func (l *Loop) Run(ctx context.Context) error {
	out := l.config.Output

	color.New(color.FgCyan).Fprintln(out, "\nAsk questions about your documents (type 'exit' to quit)")

	scanner := bufio.NewScanner(l.config.Input)
	userPrompt := color.New(color.FgGreen)
	assistantPrompt := color.New(color.FgCyan)
	errPrint := color.New(color.FgRed)

	for {
		userPrompt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		start := time.Now()

		searchSpinner := l.spinner(" Searching documents...")
		results, err := l.engine.Retrieve(ctx, query)
		searchSpinner.Finish()

		if errors.Is(err, types.ErrEmptyIndex) {
			errPrint.Fprintln(out, "No documents have been ingested yet. Run the ingest command first.")
			continue
		}
		if err != nil {
			errPrint.Fprintf(out, "Error retrieving documents: %v\n", err)
			continue
		}

		assistantPrompt.Fprint(out, "\nAssistant: ")

		var stream func(string)
		if !l.config.MuteStream {
			stream = func(chunk string) { fmt.Fprint(out, chunk) }
		}

		answer, err := l.generator.Generate(ctx, query, results, stream)
		if err != nil {
			errPrint.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if l.config.MuteStream {
			fmt.Fprint(out, answer)
		}
		fmt.Fprintf(out, "\n\n(took %.2fs)\n", time.Since(start).Seconds())

		if !l.config.HideSource {
			l.printSources(out, results)
		}
	}

	return scanner.Err()
}

// printSources lists the deduplicated source identifiers, then a snippet of
// each chunk the answer was grounded in.
func (l *Loop) printSources(out io.Writer, results []models.SearchResult) {
	if len(results) == 0 {
		return
	}

	seen := make(map[string]bool)
	var sources []string
	for _, res := range results {
		if !seen[res.Entry.Source] {
			seen[res.Entry.Source] = true
			sources = append(sources, res.Entry.Source)
		}
	}

	color.New(color.FgYellow).Fprintf(out, "\nSources: %s\n", strings.Join(sources, ", "))
	for _, res := range results {
		fmt.Fprintf(out, "\n> %s (chunk %d, score %.3f):\n%s\n",
			res.Entry.Source, res.Entry.ChunkIndex, res.Score, snippet(res.Entry.Content))
	}
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen]) + "..."
}

func (l *Loop) spinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(l.config.Output),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
