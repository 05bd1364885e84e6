// Command uaprod turns a task document into committed files and a pull
// request.
//
// Usage:
//
//	uaprod [flags] <payload.json|payload.yaml>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/maruel/uaprod/internal/config"
	"github.com/maruel/uaprod/internal/failure"
	"github.com/maruel/uaprod/internal/payload"
	"github.com/maruel/uaprod/internal/pipeline"
)

func main() {
	level := &slog.LevelVar{}
	slog.SetDefault(slog.New(newLogHandler(os.Stderr, level)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(os.Getenv, level).ExecuteContext(ctx)
	stop()
	if err != nil {
		var fe *failure.Error
		if errors.As(err, &fe) {
			slog.Error("uaprod failed", append([]any{"err", err}, fe.LogAttrs()...)...)
		} else {
			slog.Error("uaprod failed", "err", err)
		}
		os.Exit(failure.ExitCode(err))
	}
}

func newLogHandler(f *os.File, level slog.Leveler) slog.Handler {
	var w io.Writer = f
	noColor := !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	if !noColor {
		w = colorable.NewColorable(f)
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
}

func newRootCmd(getenv func(string) string, level *slog.LevelVar) *cobra.Command {
	var flags config.Config
	cmd := &cobra.Command{
		Use:   "uaprod [flags] <payload>",
		Short: "Generate files from a task document and publish them as a pull request",
		Long: `uaprod reads a JSON or YAML task document, asks the configured LLM provider
to write every listed output file, commits them on a branch, pushes it and
opens a pull request. A summary is written to <log-dir>/summary.json.

The provider API key is read from the provider's environment variable, e.g.
OPENAI_API_KEY. GIT_AUTHOR_NAME and GIT_AUTHOR_EMAIL set the commit author.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return failure.Usage(fmt.Sprintf("expected exactly one payload file, got %d arguments", len(args)))
			}
			return nil
		},
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Past argument validation, errors are not usage problems.
			cmd.SilenceUsage = true
			if flags.Verbose {
				level.Set(slog.LevelDebug)
			}
			cfg, err := config.Load(getenv, flags)
			if err != nil {
				return err
			}
			req, err := payload.Load(args[0])
			if err != nil {
				return err
			}
			r := pipeline.NewRunner(cfg)
			slog.Debug("loaded task", "run", r.ID().String(), "path", args[0], "provider", cfg.Provider, "dir", cfg.Dir)
			sum, err := r.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d file(s) on %s\n", cfg.LogDir, len(sum.Outputs), sum.Branch)
			return err
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return failure.Usage(err.Error())
	})
	f := cmd.Flags()
	f.StringVar(&flags.Dir, "dir", ".", "working tree the output paths are relative to")
	f.StringVar(&flags.LogDir, "log-dir", config.DefaultLogDir, "directory for summary.json and run transcripts")
	f.StringVar(&flags.Provider, "provider", "", "LLM provider (default $UAPROD_PROVIDER or "+config.DefaultProvider+")")
	f.StringVar(&flags.Remote, "remote", config.DefaultRemote, "git remote to push to")
	f.DurationVar(&flags.GitTimeout, "git-timeout", config.DefaultGitTimeout, "timeout for each git and gh command")
	f.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}
