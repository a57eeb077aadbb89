package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/theimaginaryfoundation/chatlens/analysis"
	"github.com/theimaginaryfoundation/chatlens/analysis/fileutils"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		outDir    string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Analyze every .txt/.zip chat export in a directory",
		Long: `batch writes one JSON report per chat export, named <chat>.report.json.
A failing chat is reported and does not stop the others.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if outDir == "" {
				outDir = dir
			}
			return a.runBatch(cmd.Context(), dir, outDir, overwrite)
		},
	}
	addAnalysisFlags(cmd)
	cmd.Flags().Int("concurrency", 0, "chats analyzed at once")
	cmd.Flags().Bool("pretty", false, "indent JSON reports")
	cmd.Flags().StringVar(&outDir, "out", "", "report directory (default: the input directory)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing reports")
	return cmd
}

type batchOutcome struct {
	input    string
	report   string
	messages int
	skipped  bool
	err      error
}

var errReportExists = errors.New("report exists (use --overwrite)")

const indexName = "index.jsonl"

func (a *app) runBatch(ctx context.Context, dir, outDir string, overwrite bool) error {
	files, err := fileutils.ChatFiles(dir)
	if err != nil {
		return usageError{err}
	}
	if len(files) == 0 {
		return usageError{fmt.Errorf("no .txt or .zip chat exports in %s", dir)}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir -out: %w", err)
	}
	analyzer, err := a.newAnalyzer()
	if err != nil {
		return err
	}

	concurrency := a.cfg.Batch.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	outcomes := make([]batchOutcome, len(files))

	var g errgroup.Group
	for i, input := range files {
		g.Go(func() error {
			outcomes[i].input = input
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i].err = err
				return nil
			}
			defer sem.Release(1)
			outcomes[i] = a.analyzeToFile(ctx, analyzer, input, outDir, overwrite)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Chat", "Messages", "Result"})
	for _, o := range outcomes {
		result := o.report
		switch {
		case o.skipped:
			result = "skipped: " + errReportExists.Error()
		case o.err != nil:
			failed++
			result = "error: " + o.err.Error()
			a.log.Warn().Err(o.err).Str("file", o.input).Msg("chat failed")
		}
		tbl.AppendRow(table.Row{filepath.Base(o.input), o.messages, result})
	}
	fmt.Fprintln(a.stdout, tbl.Render())

	if err := rebuildIndex(filepath.Join(outDir, indexName), outcomes); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d chats failed", failed, len(files))
	}
	return nil
}

func (a *app) analyzeToFile(ctx context.Context, analyzer *analysis.Analyzer, input, outDir string, overwrite bool) batchOutcome {
	out := batchOutcome{input: input, report: fileutils.ReportPath(outDir, input, ".json")}
	if !overwrite && fileutils.ReportExists(out.report) {
		out.skipped = true
		return out
	}
	text, err := fileutils.ReadChatFile(input)
	if err != nil {
		out.err = err
		return out
	}
	res, err := analyzer.Analyze(ctx, text)
	if err != nil {
		out.err = err
		return out
	}
	out.messages = res.ParsedChatData.Stats.ValidMessages
	if err := fileutils.WriteReportJSON(out.report, res, a.cfg.Output.Pretty); err != nil {
		out.err = err
		return out
	}
	a.log.Debug().Str("file", input).Str("report", out.report).Msg("report written")
	return out
}

// rebuildIndex writes one index row per report on disk, skipped ones included, in input order.
func rebuildIndex(indexPath string, outcomes []batchOutcome) error {
	var buf bytes.Buffer
	for _, o := range outcomes {
		if o.err != nil || !fileutils.ReportExists(o.report) {
			continue
		}
		b, err := os.ReadFile(o.report)
		if err != nil {
			return fmt.Errorf("reindex: read %s: %w", o.report, err)
		}
		var res analysis.Result
		if err := json.Unmarshal(b, &res); err != nil {
			return fmt.Errorf("reindex: unmarshal %s: %w", o.report, err)
		}
		line, err := json.Marshal(analysis.BuildIndexRecord(&res, o.input, o.report))
		if err != nil {
			return fmt.Errorf("reindex: marshal: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := fileutils.WriteReport(indexPath, buf.Bytes()); err != nil {
		return fmt.Errorf("reindex: write: %w", err)
	}
	return nil
}
