package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewd/reviewd/internal/client"
	"github.com/reviewd/reviewd/internal/log"
	"github.com/reviewd/reviewd/internal/model"
	"github.com/reviewd/reviewd/internal/report"
)

var (
	flagServerURL  string
	flagExtensions []string
	flagOutputDir  string
	flagPollEvery  time.Duration
)

var reviewCmd = &cobra.Command{
	Use:   "review [directory]",
	Short: "review submits a directory of source files and waits for the verdict",
	Args:  cobra.MaximumNArgs(1),
	RunE:  doReview,
}

func init() {
	reviewCmd.Flags().StringVar(&flagServerURL, "server", "http://localhost:8420", "review server url")
	reviewCmd.Flags().StringSliceVar(&flagExtensions, "ext", []string{".py", ".js", ".go", ".java", ".php"}, "file extensions to submit")
	reviewCmd.Flags().StringVar(&flagOutputDir, "output", "", "directory to store the report and archive, skipped when empty")
	reviewCmd.Flags().DurationVar(&flagPollEvery, "poll", 500*time.Millisecond, "status poll interval")
}

func doReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	c, err := client.New(flagServerURL)
	if err != nil {
		return err
	}
	if _, err := c.Health(ctx); err != nil {
		return fmt.Errorf("server %s is not reachable: %w", flagServerURL, err)
	}

	batch, err := client.CollectFiles(dir, flagExtensions)
	if err != nil {
		return err
	}
	if len(batch.Files) == 0 {
		return fmt.Errorf("no files matching %v under %s", flagExtensions, dir)
	}
	fmt.Printf("Submitting %d files from %s\n", len(batch.Files), dir)

	sessionID, err := c.Submit(ctx, batch, nil)
	if err != nil {
		return err
	}
	ctx = log.ContextAttrs(ctx, slog.String("sessionID", sessionID))

	lastStep := ""
	snap, err := c.Wait(ctx, sessionID, flagPollEvery, func(s model.Snapshot) {
		if s.CurrentStep != lastStep && s.CurrentStep != "" {
			fmt.Printf("[%3d%%] %s\n", s.Progress, s.CurrentStep)
			lastStep = s.CurrentStep
		}
	})
	if err != nil {
		return err
	}
	if snap.Status == model.StatusFailed {
		return fmt.Errorf("review failed: %s", snap.Error)
	}

	res, err := c.Results(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(report.Text(res))

	if flagOutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(flagOutputDir, 0755); err != nil {
		return err
	}
	for name, fetch := range map[string]func() ([]byte, error){
		"code_review_report_" + sessionID + ".html": func() ([]byte, error) { return c.Report(ctx, sessionID) },
		"findings_" + sessionID + ".cdx.json":       func() ([]byte, error) { return c.Findings(ctx, sessionID) },
		"improved_code_" + sessionID + ".zip":       func() ([]byte, error) { return c.Archive(ctx, sessionID) },
	} {
		raw, err := fetch()
		if err != nil {
			return err
		}
		path := filepath.Join(flagOutputDir, name)
		if err := os.WriteFile(path, raw, 0644); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
	}
	return nil
}
