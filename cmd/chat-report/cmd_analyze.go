package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/chatlens/analysis/fileutils"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "analyze <chat.txt|chat.zip>",
		Short: "Analyze one chat export",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0], outPath)
		},
	}
	addAnalysisFlags(cmd)
	cmd.Flags().String("format", "", "output format: json, table or markdown")
	cmd.Flags().Bool("pretty", false, "indent JSON output")
	cmd.Flags().StringVar(&outPath, "out", "", "write the report to this file instead of stdout")
	return cmd
}

// addAnalysisFlags registers the flags shared by analyze and batch.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "sentiment classifier: none or openai")
	cmd.Flags().String("model", "", "classifier model")
	cmd.Flags().String("lexicon", "", "lexicon YAML file (default: embedded Spanish lexicon)")
}

func (a *app) runAnalyze(cmd *cobra.Command, path, outPath string) error {
	text, err := fileutils.ReadChatFile(path)
	if err != nil {
		return err
	}
	analyzer, err := a.newAnalyzer()
	if err != nil {
		return err
	}
	res, err := analyzer.Analyze(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}
	a.log.Info().
		Str("file", path).
		Str("run_id", res.RunID).
		Int("messages", res.ParsedChatData.Stats.ValidMessages).
		Int("failed_lines", res.ParsedChatData.Stats.FailedLines).
		Bool("ai", res.AffectionAnalysis.AIPerformed).
		Msg("analysis complete")

	if outPath == "" {
		return renderReport(a.stdout, res, a.cfg.Output.Format, a.cfg.Output.Pretty)
	}
	var buf bytes.Buffer
	if err := renderReport(&buf, res, a.cfg.Output.Format, a.cfg.Output.Pretty); err != nil {
		return err
	}
	if err := fileutils.WriteReport(outPath, buf.Bytes()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(a.stdout, "report written to %s\n", outPath)
	return nil
}
