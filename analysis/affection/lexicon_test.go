package affection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	t.Parallel()

	lex := DefaultLexicon()
	assert.Len(t, lex.AffectionKeywords, 31)
	assert.Len(t, lex.PositiveEmojis, 14)
	assert.Contains(t, lex.GreenKeywords, "cuenta conmigo")
	assert.Contains(t, lex.RedKeywords, "dejame en paz")
	assert.Contains(t, lex.AffectionKeywords, " L ")

	lex.AffectionKeywords[0] = "changed"
	assert.Equal(t, "te quiero", DefaultLexicon().AffectionKeywords[0])
}

func TestParseLexicon(t *testing.T) {
	t.Parallel()

	lex, err := ParseLexicon([]byte("affection_keywords: [amor, '  ']\nred_keywords: [odio]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"amor"}, lex.AffectionKeywords)
	assert.Equal(t, []string{"odio"}, lex.RedKeywords)
	assert.Empty(t, lex.GreenKeywords)

	_, err = ParseLexicon([]byte("{}"))
	assert.Error(t, err)

	_, err = ParseLexicon([]byte("affection_keywords: [unterminated"))
	assert.Error(t, err)
}

func TestLoadLexicon(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("green_keywords: [thanks]\n"), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"thanks"}, lex.GreenKeywords)

	_, err = LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LoadLexicon")
}

func TestContainsBounded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s, kw string
		want  bool
	}{
		{"ok tq!", "tq", true},
		{"tqm", "tq", false},
		{"atq tq", "tq", true},
		{"te quiero l", "l", true},
		{"hola", "l", false},
		{"❤️❤️", "❤️", true},
		{"hola ❤️", "❤️", true},
		{"hola❤️", "❤️", false},
		{"¡❤️!", "❤️", true},
		{"", "tq", false},
		{"tq", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsBounded(tt.s, tt.kw), "%q in %q", tt.kw, tt.s)
	}
}

func TestCompile_SkipsOverlaps(t *testing.T) {
	t.Parallel()

	m := compile(&Lexicon{
		AffectionKeywords: []string{"Te Quiero", "😍"},
		PositiveEmojis:    []string{"😍", "😊"},
		GreenKeywords:     []string{"Te Quiero", "Gracias"},
	})
	assert.Equal(t, []string{"😊"}, m.emojis)
	assert.Equal(t, []string{"gracias"}, m.green)
	assert.Equal(t, 1, m.affectionMatches("yo te quiero"))
}
