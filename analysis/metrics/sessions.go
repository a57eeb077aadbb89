package metrics

import (
	"time"

	"github.com/theimaginaryfoundation/chatlens/analysis/chatlog"
)

// Session is a run of messages with no gap above ConversationGap.
type Session struct {
	Index        int       `json:"index"`
	Starter      string    `json:"starter"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	MessageCount int       `json:"messageCount"`
	Participants []string  `json:"participants"`
}

// Duration is the time between the first and last message of the session.
func (s Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

type sessionBuilder struct {
	sessions []Session
	seen     map[string]bool
}

func newSessionBuilder() *sessionBuilder {
	return &sessionBuilder{}
}

func (b *sessionBuilder) add(msg chatlog.Message, starts bool) {
	if starts || len(b.sessions) == 0 {
		b.sessions = append(b.sessions, Session{
			Index:   len(b.sessions),
			Starter: msg.Author,
			Start:   msg.Timestamp,
		})
		b.seen = map[string]bool{}
	}
	s := &b.sessions[len(b.sessions)-1]
	s.End = msg.Timestamp
	s.MessageCount++
	if !b.seen[msg.Author] {
		b.seen[msg.Author] = true
		s.Participants = append(s.Participants, msg.Author)
	}
}

func (b *sessionBuilder) finish() []Session {
	if b.sessions == nil {
		return []Session{}
	}
	return b.sessions
}
