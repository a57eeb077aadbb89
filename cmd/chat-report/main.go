package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/chatlens/analysis"
	"github.com/theimaginaryfoundation/chatlens/analysis/affection"
	"github.com/theimaginaryfoundation/chatlens/analysis/provider"
)

var version = "dev"

const (
	exitOK       = 0
	exitAnalysis = 1
	exitUsage    = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// usageError marks errors that exit with exitUsage.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			return exitUsage
		}
		return exitAnalysis
	}
	return exitOK
}

// app carries what every subcommand shares for one process.
type app struct {
	stdout, stderr io.Writer
	configPath     string

	cfg Config
	log zerolog.Logger

	handleOnce sync.Once
	handle     *affection.ClassifierHandle
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "chat-report",
		Short: "Analyze exported chat conversations",
		Long: `chat-report parses exported chat logs and reports participation balance,
responsiveness, estimated affection and overall tone.

Commands:
  analyze   Analyze one chat export (.txt or .zip)
  batch     Analyze every chat export in a directory
  lexicon   Inspect the affection lexicon`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default .chatlens.yaml in . or $HOME)")
	root.PersistentFlags().String("log-level", "", "debug, info, warn, error or disabled")
	root.PersistentFlags().String("log-format", "", "console or json")

	root.AddCommand(newAnalyzeCmd(a), newBatchCmd(a), newLexiconCmd(a), versionCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, cmd)
	if err != nil {
		return usageError{err}
	}
	log, err := newLogger(cfg.Log, a.stderr)
	if err != nil {
		return usageError{err}
	}
	a.cfg, a.log = cfg, log
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// classifierHandle is shared by every analysis in the process so the provider loads once.
func (a *app) classifierHandle() *affection.ClassifierHandle {
	a.handleOnce.Do(func() {
		c := a.cfg.Classifier
		if c.Provider != providerOpenAI {
			return
		}
		a.handle = affection.NewClassifierHandle(providerOpenAI, provider.NewLoader(provider.Config{
			APIKey:              c.APIKey,
			Model:               c.Model,
			BaseURL:             c.BaseURL,
			MaxTokensPerMessage: c.MaxTokensPerMessage,
			Retry:               provider.DefaultRetryPolicy(),
			Logger:              a.log,
		}))
	})
	return a.handle
}

func (a *app) lexicon() (*affection.Lexicon, error) {
	if a.cfg.Lexicon.Path == "" {
		return affection.DefaultLexicon(), nil
	}
	return affection.LoadLexicon(a.cfg.Lexicon.Path)
}

func (a *app) newAnalyzer() (*analysis.Analyzer, error) {
	lex, err := a.lexicon()
	if err != nil {
		return nil, usageError{err}
	}
	opts := []affection.Option{
		affection.WithLexicon(lex),
		affection.WithLogger(a.log),
		affection.WithBatchDelay(a.cfg.Classifier.BatchDelay),
		affection.WithModelProgress(func(p affection.Progress) {
			ev := a.log.Info()
			if p.Status == affection.StatusError {
				ev = a.log.Warn().Str("error", p.Error)
			}
			ev.Str("status", string(p.Status)).Str("model", p.Name).Float64("progress", p.Progress).Msg("classifier")
		}),
		affection.WithBatchProgress(func(processed, total int) {
			a.log.Debug().Int("processed", processed).Int("total", total).Msg("classification progress")
		}),
	}
	if h := a.classifierHandle(); h != nil {
		opts = append(opts, affection.WithClassifier(h))
	}
	return analysis.New(
		analysis.WithEngine(affection.NewEngine(opts...)),
		analysis.WithLogger(a.log),
	), nil
}

func versionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  exactArgs(0),
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "chat-report %s\n", version)
		},
	}
	// Version needs no config.
	cmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }
	return cmd
}
