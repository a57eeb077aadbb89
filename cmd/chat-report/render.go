package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/theimaginaryfoundation/chatlens/analysis"
	"github.com/theimaginaryfoundation/chatlens/analysis/affection"
)

func renderReport(w io.Writer, res *analysis.Result, format string, pretty bool) error {
	switch format {
	case formatJSON:
		return renderJSON(w, res, pretty)
	case formatMarkdown:
		return renderMarkdown(w, res)
	default:
		return renderTable(w, res)
	}
}

func renderJSON(w io.Writer, res *analysis.Result, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func renderTable(w io.Writer, res *analysis.Result) error {
	bold := color.New(color.Bold)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	bold.Fprintf(w, "Chat report (run %s)\n", res.RunID)
	for _, line := range overviewLines(res) {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, participantTable(res).Render())
	fmt.Fprintln(w)

	details := res.InterpretationDetails
	if len(details.PositivePoints) > 0 {
		bold.Fprintln(w, "Positive patterns:")
		for _, p := range details.PositivePoints {
			good.Fprintf(w, "  + %s\n", p)
		}
	}
	if len(details.AttentionPoints) > 0 {
		bold.Fprintln(w, "Points for reflection:")
		for _, p := range details.AttentionPoints {
			warn.Fprintf(w, "  ! %s\n", p)
		}
	}
	fmt.Fprintln(w)
	bold.Fprintln(w, "Interpretation:")
	_, err := fmt.Fprintln(w, summaryMarkdown(details.Summary))
	return err
}

func renderMarkdown(w io.Writer, res *analysis.Result) error {
	var b strings.Builder
	b.WriteString("# Chat report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", res.RunID)
	for _, line := range overviewLines(res) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\n## Participants\n\n")
	b.WriteString(participantTable(res).RenderMarkdown())
	b.WriteString("\n")

	details := res.InterpretationDetails
	writeList := func(title string, points []string) {
		if len(points) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## %s\n\n", title)
		for _, p := range points {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	writeList("Positive patterns", details.PositivePoints)
	writeList("Points for reflection", details.AttentionPoints)

	b.WriteString("\n## Interpretation\n\n")
	b.WriteString(summaryMarkdown(details.Summary))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func overviewLines(res *analysis.Result) []string {
	m := res.CalculatedMetrics
	g := m.Global
	stats := res.ParsedChatData.Stats

	lines := []string{
		fmt.Sprintf("Messages: %s (%s media) from %d participants",
			humanize.Comma(int64(g.TotalMessageCount)), humanize.Comma(int64(g.MediaMessagesCount)), len(g.Participants)),
	}
	if g.DateRange.Start != nil && g.DateRange.End != nil {
		lines = append(lines, fmt.Sprintf("Period: %s to %s (%s)",
			g.DateRange.Start.Format(time.DateOnly), g.DateRange.End.Format(time.DateOnly), span(*g.DateRange.Start, *g.DateRange.End)))
	}
	lines = append(lines, fmt.Sprintf("Parsed: %s lines, %s not recognized",
		humanize.Comma(int64(stats.TotalLines)), humanize.Comma(int64(stats.FailedLines))))
	if m.Activity.PeakHour >= 0 {
		lines = append(lines, fmt.Sprintf("Busiest: %02d:00 UTC, %s", m.Activity.PeakHour, m.Activity.PeakWeekday))
	}
	if len(m.Sessions) > 0 {
		lines = append(lines, fmt.Sprintf("Conversations: %s", humanize.Comma(int64(len(m.Sessions)))))
	}
	s := res.AffectionAnalysis.Sentiment
	if res.AffectionAnalysis.AIPerformed {
		lines = append(lines, fmt.Sprintf("AI tone: %.0f%% positive, %.0f%% negative, %.0f%% neutral over %s messages",
			s.PositivePct, s.NegativePct, s.NeutralPct, humanize.Comma(int64(s.Analyzed))))
	}
	return lines
}

func span(start, end time.Time) string {
	if !end.After(start) {
		return "same moment"
	}
	return strings.TrimSpace(humanize.RelTime(start, end, "", ""))
}

func participantTable(res *analysis.Result) table.Writer {
	m := res.CalculatedMetrics
	idx := res.AffectionAnalysis.Index

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Participant", "Messages", "Share", "Avg words", "Starts", "Median reply", "Bursts >2h", "Affection", "AI analyzed"})

	total := m.Global.TotalMessageCount
	for _, name := range m.Global.Participants {
		p := m.Participant(name)
		share := 0.0
		if total > 0 {
			share = float64(p.MessageCount) / float64(total) * 100
		}
		reply := "-"
		if rt := p.AvgResponseTime; rt.Count > 0 {
			reply = fmt.Sprintf("%.1f min (%d)", rt.AverageMinutes, rt.Count)
		}
		e := idx.Get(name)
		tbl.AppendRow(table.Row{
			name,
			humanize.Comma(int64(p.MessageCount)),
			fmt.Sprintf("%.0f%%", share),
			fmt.Sprintf("%.1f", p.AvgWordsPerMessage),
			p.ConversationStarters,
			reply,
			p.UnilateralSegments,
			fmt.Sprintf("%.1f (%.0f%%)", e.Normalized, affection.DisplayPercent(e.Normalized)),
			e.AnalyzedCountIA,
		})
	}
	tbl.AppendFooter(table.Row{"Total", humanize.Comma(int64(total))})
	return tbl
}

// summaryMarkdown converts the interpretation summary markup for terminals and documents.
func summaryMarkdown(summary string) string {
	md, err := htmltomarkdown.ConvertString(summary)
	if err != nil {
		return summary
	}
	return strings.TrimSpace(md)
}
