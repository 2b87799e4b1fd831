package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfanityFilter_Default(t *testing.T) {
	t.Parallel()
	f, err := NewProfanityFilter("")
	require.NoError(t, err)
	assert.Positive(t, f.Size())

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"clean", "What a moving story, thank you for sharing.", false},
		{"plain word", "this is shit", true},
		{"mixed case", "Total BULLSHIT!", true},
		{"leet", "sh1t happens", true},
		{"stem inside word", "absofuckinglutely", true},
		{"substring of clean word", "I passed the class and the assessment", false},
		{"punctuation boundaries", "(bastard)", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Contains(tt.text))
		})
	}
}

func TestProfanityFilter_Check(t *testing.T) {
	t.Parallel()
	f, err := ParseWordlist([]byte(`words = ["darn"]`))
	require.NoError(t, err)

	assert.NoError(t, f.Check("lovely"))
	err = f.Check("darn it")
	require.Error(t, err)
	assert.Equal(t, ProfanityMessage, err.Error())
}

func TestProfanityFilter_FromFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "words.toml")
	require.NoError(t, os.WriteFile(path, []byte("words = [\"Heck\"]\nstems = []\n"), 0o600))

	f, err := NewProfanityFilter(path)
	require.NoError(t, err)
	assert.True(t, f.Contains("oh heck"))
	assert.False(t, f.Contains("shit"))

	_, err = NewProfanityFilter(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = ParseWordlist([]byte("words = ["))
	assert.Error(t, err)
}

func TestProfanityFilter_Nil(t *testing.T) {
	t.Parallel()
	var f *ProfanityFilter
	assert.False(t, f.Contains("shit"))
	assert.NoError(t, f.Check("shit"))
}
