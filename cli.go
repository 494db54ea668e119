package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"unityarchitect/config"
	"unityarchitect/internal/files"
	"unityarchitect/internal/models"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	okColor      = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
	categoryInks = map[models.Category]*color.Color{
		models.CategoryPerformance:  color.New(color.FgYellow, color.Bold),
		models.CategoryOptimization: color.New(color.FgBlue, color.Bold),
		models.CategoryLogicError:   color.New(color.FgRed, color.Bold),
		models.CategoryArchitecture: color.New(color.FgMagenta, color.Bold),
	}
)

// printFindings writes a readable report for one script.
func printFindings(w io.Writer, path string, result models.AnalysisResult) {
	headerColor.Fprintf(w, "%s", path)
	dimColor.Fprintf(w, " (%d lines, %s)\n", result.Stats.TotalLines, result.Title())

	if len(result.Findings) == 0 {
		okColor.Fprintln(w, "  no issues found")
		return
	}
	for _, f := range result.Findings {
		ink, ok := categoryInks[f.Category]
		if !ok {
			ink = color.New(color.Reset)
		}
		fmt.Fprintf(w, "  %8s  ", f.Line)
		ink.Fprintf(w, "%-12s", f.Category)
		fmt.Fprintf(w, "  %s\n", f.Message)
	}
}

// readable reports whether a script was read. Binary and oversized files are
// skipped with a warning; any other error is returned.
func readable(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, files.ErrBinaryFile) || errors.Is(err, files.ErrFileTooLarge) {
		logrus.Warnf("Skipping %v", err)
		return false, nil
	}
	return false, err
}

type scanReport struct {
	path   string
	result models.AnalysisResult
	ok     bool
}

// scanAll runs the static pass over scripts on all CPUs. Reports keep the
// order of scripts.
func scanAll(ctx context.Context, a *app, scripts []string, maxSize int64) ([]scanReport, error) {
	reports := make([]scanReport, len(scripts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range scripts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			code, err := files.ReadScript(path, maxSize)
			ok, err := readable(err)
			if !ok {
				return err
			}
			reports[i] = scanReport{path: path, result: a.scanner.Analyze(code), ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|dir>",
	Short: "Scan Unity C# scripts for anti-patterns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withAI, _ := cmd.Flags().GetBool("ai")
		userID, _ := cmd.Flags().GetString("user")
		locale, _ := cmd.Flags().GetString("locale")

		cfg := config.AppConfig
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		scripts, err := a.explorer.FindScripts(args[0])
		if err != nil {
			return err
		}
		if len(scripts) == 0 {
			return fmt.Errorf("no %s files found under %s", files.ScriptExtension, args[0])
		}

		out := cmd.OutOrStdout()
		total := 0
		if !withAI {
			reports, err := scanAll(cmd.Context(), a, scripts, cfg.Analysis.MaxFileReadSize)
			if err != nil {
				return err
			}
			for _, r := range reports {
				if !r.ok {
					continue
				}
				total += len(r.result.Findings)
				printFindings(out, r.path, r.result)
			}
			headerColor.Fprintf(out, "%d finding(s) in %d script(s)\n", total, len(scripts))
			return nil
		}

		// Model calls run one file at a time.
		for _, path := range scripts {
			code, err := files.ReadScript(path, cfg.Analysis.MaxFileReadSize)
			if ok, err := readable(err); !ok {
				if err != nil {
					return err
				}
				continue
			}

			resp, err := a.engine.Run(cmd.Context(), models.AnalyzeRequest{UserID: userID, Code: code, Locale: locale})
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			total += len(resp.StaticResults.Findings)
			printFindings(out, path, resp.StaticResults)
			dimColor.Fprintf(out, "  [%s, %d attempt(s), %s]\n", resp.Intent, resp.Attempts, resp.Status)
			fmt.Fprintf(out, "%s\n\n", resp.AISuggestion)
		}

		headerColor.Fprintf(out, "%d finding(s) in %d script(s)\n", total, len(scripts))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored review sessions of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		a, err := newApp(cmd.Context(), config.AppConfig)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.store == nil {
			return errors.New("storage is disabled (storage.driver: none)")
		}

		list, err := a.store.ListHistory(cmd.Context(), userID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, item := range list {
			dimColor.Fprintf(out, "%s  ", item.CreatedAt.Local().Format("2006-01-02 15:04"))
			headerColor.Fprintf(out, "%-24s", item.Title)
			fmt.Fprintf(out, "  %-12s  %s\n", item.Intent, item.ID)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "no sessions")
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("ai", false, "send each script through the language model as well")
	analyzeCmd.Flags().String("user", "cli", "user id whose provider settings are used")
	analyzeCmd.Flags().String("locale", "", "answer language (en, tr, de)")

	historyCmd.Flags().String("user", "cli", "user id to list")
}
