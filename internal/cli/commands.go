package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/codalotl/jsrenamer/internal/llmmodel"
	qcli "github.com/codalotl/jsrenamer/internal/q/cli"
	"github.com/codalotl/jsrenamer/internal/q/health"
	"github.com/codalotl/jsrenamer/internal/renameengine"
	"github.com/codalotl/jsrenamer/internal/renamevisitor"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// newRootCommand builds the jsrename command tree: a single command that
// reads a JavaScript file, proposes descriptive identifier names via an LLM
// visitor, and writes the renamed source back out.
func newRootCommand() *qcli.Command {
	root := &qcli.Command{
		Name:  "jsrename",
		Short: "Rewrite minified or obfuscated JavaScript with descriptive identifier names",
		Long: "jsrename parses a JavaScript file, groups its declared identifiers by lexical " +
			"scope, asks a language model to propose descriptive names for each group given " +
			"surrounding source context, and rewrites the file with those names applied — " +
			"without changing what the program does.",
	}

	file := root.Flags().String("file", 'f', "", "path to the JavaScript file to rename (required)")
	out := root.Flags().String("out", 'o', "", "output path (default: overwrite --file in place)")
	model := root.Flags().String("model", 'm', string(llmmodel.DefaultModel), "model ID to use for rename proposals")
	resume := root.Flags().String("resume", 'r', "", "sidecar checkpoint path enabling resume on interruption")
	report := root.Flags().String("report", 0, "", "write a Markdown rename report to this path")
	dryRun := root.Flags().Bool("dry-run", 0, false, "propose renames without writing any output")
	uniqueNames := root.Flags().Bool("unique-names", 0, false, "require every new name be unique across the whole file")
	maxBatchSize := root.Flags().Int("max-batch-size", 0, 20, "maximum identifiers sent to the model per call")
	batchConcurrency := root.Flags().Int("batch-concurrency", 'c', 4, "maximum concurrent model calls")
	smallScopeMergeLimit := root.Flags().Int("small-scope-merge-limit", 0, 2, "merge scopes with at most this many identifiers into a sibling batch")
	contextWindowSize := root.Flags().Int("context-window-size", 0, 2000, "character budget for context shown to the model per batch")

	root.Run = func(c *qcli.Context) error {
		if *file == "" {
			return qcli.UsageError{Message: "missing required flag: -f/--file"}
		}
		outPath := *out
		if outPath == "" {
			outPath = *file
		}

		src, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("jsrename: reading %s: %w", *file, err)
		}

		modelID := llmmodel.ModelIDOrFallback(llmmodel.ModelID(*model))
		apiKey := llmmodel.GetAPIKey(modelID)
		if apiKey == "" {
			return qcli.UsageError{Message: fmt.Sprintf("no API key configured for model %q (set %s)", modelID, envHintFor(modelID))}
		}
		info := llmmodel.GetModelInfo(modelID)
		providerModelID := info.ProviderModelID
		if providerModelID == "" {
			providerModelID = string(modelID)
		}

		client := openai.NewClient(option.WithAPIKey(apiKey))
		visitor := renamevisitor.NewOpenAIVisitor(client, providerModelID)

		var reportFile *os.File
		if *report != "" {
			f, err := os.Create(*report)
			if err != nil {
				return fmt.Errorf("jsrename: creating report %s: %w", *report, err)
			}
			defer f.Close()
			reportFile = f
		}

		cfg := renameengine.Config{
			MaxBatchSize:         *maxBatchSize,
			BatchConcurrency:     *batchConcurrency,
			SmallScopeMergeLimit: *smallScopeMergeLimit,
			ContextWindowSize:    *contextWindowSize,
			UniqueNames:          *uniqueNames,
			DryRun:               *dryRun,
			ResumePath:           *resume,
			FilePath:             *file,
			Ctx:                  health.Ctx{Logger: slog.New(slog.NewTextHandler(c.Err, &slog.HandlerOptions{Level: slog.LevelWarn}))},
			OnProgress: func(fraction float64) {
				fmt.Fprintf(c.Err, "\rjsrename: %3.0f%%", fraction*100)
				if fraction >= 1 {
					fmt.Fprintln(c.Err)
				}
			},
		}
		if reportFile != nil {
			cfg.ReportWriter = reportFile
		}

		result, err := renameengine.Rename(context.Background(), string(src), visitor, cfg)
		if err != nil {
			return fmt.Errorf("jsrename: %w", err)
		}

		if *dryRun {
			_, err := fmt.Fprint(c.Out, result)
			return err
		}
		return os.WriteFile(outPath, []byte(result), 0o644)
	}

	return root
}

func envHintFor(id llmmodel.ModelID) string {
	vars := llmmodel.ProviderKeyEnvVars()
	if env := vars[id.ProviderID()]; env != "" {
		return env
	}
	return "the provider's API key env var"
}
