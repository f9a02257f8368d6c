package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/services"
	"github.com/custodia-labs/margin-cli/internal/logger"
)

var (
	annotateJSON   bool
	annotateSave   bool
	annotatePrompt string
	annotateWatch  string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [text]",
	Short: "Annotate text with semantic spans",
	Long: `Annotates prompt text with semantic spans using the configured
labeling backend.

Text is read from the argument, or from stdin when no argument is given.
With --watch, a file is watched and relabeled on every change, printing
results as they arrive.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().BoolVar(&annotateJSON, "json", false, "output the parse result as JSON")
	annotateCmd.Flags().BoolVar(&annotateSave, "save", false, "save a version with the result")
	annotateCmd.Flags().StringVar(&annotatePrompt, "prompt", "default", "prompt-history entry id")
	annotateCmd.Flags().StringVar(&annotateWatch, "watch", "", "watch a file and relabel on change")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	if annotateWatch != "" {
		return runAnnotateWatch(cmd)
	}

	text, err := annotateInput(args)
	if err != nil {
		return err
	}

	result, snap, err := annotatorService.Annotate(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("annotating: %w", err)
	}

	if annotateSave && snap != nil {
		versions := services.NewVersions(annotatePrompt, versionStore)
		if err := versions.Load(cmd.Context()); err != nil {
			return err
		}
		if err := versions.SyncHighlights(cmd.Context(), *snap, result.DisplayText); err != nil {
			return err
		}
		ver, created, err := versions.CreateVersionIfNeeded(cmd.Context(), result.DisplayText, "")
		if err != nil {
			return err
		}
		if created {
			cmd.Printf("Saved %s (%s)\n", ver.Label, ver.VersionID)
		} else {
			cmd.Printf("Unchanged since %s\n", ver.Label)
		}
	}

	if annotateJSON {
		return outputResultJSON(cmd, result)
	}
	return outputResultText(cmd, result)
}

// annotateInput resolves the text to annotate from the argument or stdin.
func annotateInput(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("no text given: pass an argument or pipe to stdin")
	}
	return string(data), nil
}

// runAnnotateWatch relabels the watched file on every write, debounced
// through the labeling client so bursts of saves coalesce into one call.
func runAnnotateWatch(cmd *cobra.Command) error {
	path, err := filepath.Abs(annotateWatch)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops the
	// watch when it points at the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	client := services.NewLabelingClient(labelerService, services.LabelingOptions{
		Enabled:         true,
		CacheKey:        annotatePrompt,
		Debounce:        appSettings.Debounce(),
		MaxSpans:        appSettings.MaxSpans,
		MinConfidence:   appSettings.MinConfidence,
		TemplateVersion: appSettings.TemplateVersion,
	})
	defer client.Close()

	results := make(chan services.LabelingResult, 8)
	client.OnResult(func(r services.LabelingResult) {
		results <- r
	})

	feed := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("watch: reading %s: %v", path, err)
			return
		}
		client.SetText(cmd.Context(), string(data))
	}
	feed()
	client.Flush(cmd.Context())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cmd.Printf("Watching %s (ctrl-c to stop)\n", path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				logger.Debug("watch: %s", event)
				feed()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		case r := <-results:
			result := domain.BuildParseResult(r.Spans, domain.Normalise(mustReadFile(path)), true)
			if annotateJSON {
				if err := outputResultJSON(cmd, result); err != nil {
					return err
				}
			} else if err := outputResultText(cmd, result); err != nil {
				return err
			}
		case <-sigCh:
			return nil
		case <-cmd.Context().Done():
			return nil
		}
	}
}

// mustReadFile reads the watched file, empty on error.
func mustReadFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func outputResultJSON(cmd *cobra.Command, result domain.ParseResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultText(cmd *cobra.Command, result domain.ParseResult) error {
	if len(result.Spans) == 0 {
		cmd.Println("No spans found.")
		return nil
	}

	cmd.Printf("%d spans:\n", len(result.Spans))
	for i := range result.Spans {
		s := &result.Spans[i]
		marker := ""
		if s.Stale {
			marker = " (stale)"
		}
		cmd.Printf("  [%d-%d] %-10s %q (%.2f)%s\n", s.Start, s.End, s.Category, s.Quote, s.Confidence, marker)
	}
	return nil
}
