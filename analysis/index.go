package analysis

import (
	"strings"
	"time"

	"github.com/theimaginaryfoundation/chatlens/analysis/flags"
)

// IndexRecord is a single row in a batch run's index.jsonl.
type IndexRecord struct {
	Chat       string `json:"chat"`
	ReportPath string `json:"report_path"`
	RunID      string `json:"run_id"`

	Participants []string   `json:"participants"`
	Messages     int        `json:"messages"`
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	AIPerformed  bool       `json:"ai_performed"`

	// Topics are duplicated here for quick scanning without opening the report.
	PositiveTopics  []string `json:"positive_topics,omitempty"`
	AttentionTopics []string `json:"attention_topics,omitempty"`
}

// BuildIndexRecord creates a stable index row for a report file.
func BuildIndexRecord(res *Result, chatPath, reportPath string) IndexRecord {
	rec := IndexRecord{
		Chat:        chatPath,
		ReportPath:  reportPath,
		RunID:       res.RunID,
		Messages:    res.ParsedChatData.Stats.ValidMessages,
		AIPerformed: res.AffectionAnalysis.AIPerformed,
	}
	if m := res.CalculatedMetrics; m != nil {
		rec.Participants = m.Global.Participants
		rec.Start, rec.End = m.Global.DateRange.Start, m.Global.DateRange.End
	}
	rec.PositiveTopics = dedupeStrings(topics(res.Findings.Positive))
	rec.AttentionTopics = dedupeStrings(topics(res.Findings.Attention))
	return rec
}

func topics(list []flags.Finding) []string {
	out := make([]string, 0, len(list))
	for _, fd := range list {
		out = append(out, string(fd.Topic))
	}
	return out
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
