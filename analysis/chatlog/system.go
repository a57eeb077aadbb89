package chatlog

import "strings"

// Platform notices in Spanish and English exports. Entries are lower-case and matched as
// case-insensitive substrings of the author or the content.
var defaultSystemIndicators = []string{
	"cifrado de extremo a extremo",
	"los mensajes y las llamadas están cifrados",
	"messages and calls are end-to-end encrypted",
	"creó el grupo", "creaste el grupo",
	"you created group",
	"añadió a", "añadiste a",
	"you added",
	"cambió el asunto", "cambiaste el asunto",
	"changed the subject",
	"cambió el ícono", "cambió el ícono de este grupo", "changed this group's icon",
	"saliste del grupo",
	"you left",
	"salió del grupo",
	"eliminó a", "eliminaste a",
	"removed",
	"cambió tu código de seguridad",
	"changed your security code",
	"cambió su código de seguridad",
	"changed their security code",
	"mensajes temporales",
	"disappearing messages",
	"activaron los mensajes temporales", "activaste los mensajes temporales",
	"turned on disappearing messages",
	"desactivó los mensajes temporales", "desactivaste los mensajes temporales",
	"turned off disappearing messages",
	"llamada perdida", "llamada de voz perdida",
	"missed voice call",
	"videollamada perdida",
	"missed video call",
	"llamada,",
	"videollamada,",
	"uniste usando el enlace", "te uniste usando el enlace",
	"joined using this group's invite link",
	"you joined using this group's link",
	"sticker omitido",
	"imagen omitida",
	"video omitido",
	"audio omitido",
	"documento omitido",
	"gif omitido",
	"<media omitted>",
	"mensaje eliminado", "eliminaste este mensaje",
	"this message was deleted", "you deleted this message",
	"bloqueaste a este contacto",
	"desbloqueaste a este contacto",
	"you blocked this contact",
	"you unblocked this contact",
	"tap to change.",
	"cambió a mensajes temporales",
	"se unió usando el enlace de invitación",
	"la encuesta finalizó:",
	"poll ended:",
	"creaste una encuesta:",
	"you created a poll:",
}

// DefaultSystemIndicators returns a copy of the built-in indicator list.
func DefaultSystemIndicators() []string {
	out := make([]string, len(defaultSystemIndicators))
	copy(out, defaultSystemIndicators)
	return out
}

// SystemMatcher holds a normalized indicator set.
type SystemMatcher struct {
	indicators []string
}

func NewSystemMatcher(indicators []string) *SystemMatcher {
	m := &SystemMatcher{indicators: make([]string, 0, len(indicators))}
	for _, ind := range indicators {
		ind = strings.ToLower(ind)
		if ind == "" {
			continue
		}
		m.indicators = append(m.indicators, ind)
	}
	return m
}

// Contains reports whether s contains any indicator.
func (m *SystemMatcher) Contains(s string) bool {
	lower := strings.ToLower(s)
	for _, ind := range m.indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// IsSystemLine reports whether a grammar-matched line is a platform event rather than a
// participant message.
func (m *SystemMatcher) IsSystemLine(author, content string) bool {
	content = stripBidiMark(content)
	if strings.HasPrefix(content, "<") && strings.HasSuffix(content, ">") && strings.Contains(content, "omitted") {
		return true
	}
	return m.Contains(author) || m.Contains(content)
}

var defaultMatcher = NewSystemMatcher(defaultSystemIndicators)

// IsSystemLine checks author and content against the built-in indicators.
func IsSystemLine(author, content string) bool {
	return defaultMatcher.IsSystemLine(author, content)
}

// ContainsSystemIndicator checks a raw line against the built-in indicators.
func ContainsSystemIndicator(line string) bool {
	return defaultMatcher.Contains(line)
}

func stripBidiMark(s string) string {
	if strings.HasPrefix(s, "\u200e") || strings.HasPrefix(s, "\u200f") {
		return trimSpace(s[len("\u200e"):])
	}
	return s
}
