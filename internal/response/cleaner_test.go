package response

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "wrapper extraction",
			raw:  "[abc] codex\n  Hello world\n[abc] tokens used: 10",
			want: "Hello world",
		},
		{
			name: "wrapper extraction with CRLF",
			raw:  "[abc] codex\r\n  Hello world\r\n[abc] tokens used: 10",
			want: "Hello world",
		},
		{
			name: "CRLF body folded to LF",
			raw:  "Here's the revised text:\r\n\r\nDear team,\r\nsee you Thursday.\r\n",
			want: "Dear team,\nsee you Thursday.",
		},
		{
			name: "wrapper with leading log lines",
			raw: "[2025-01-01T10:00:00] OpenAI Codex v0.1\n--------\n[2025-01-01T10:00:01] User instructions:\nrewrite\n" +
				"[2025-01-01T10:00:02] thinking\nplanning\n[2025-01-01T10:00:03] codex\nFinal answer\nsecond line\n" +
				"[2025-01-01T10:00:04] tokens used: 1234\n",
			want: "Final answer\nsecond line",
		},
		{
			name: "wrapper skips remaining steps",
			raw:  "[x] codex\n\"Here's the reformatted text: quoted\"\n[x] tokens used: 3",
			want: "\"Here's the reformatted text: quoted\"",
		},
		{
			name: "double quotes",
			raw:  `"Formatted text"`,
			want: "Formatted text",
		},
		{
			name: "single quotes",
			raw:  `'Formatted text'`,
			want: "Formatted text",
		},
		{
			name: "one-sided quote untouched",
			raw:  `partial" quote`,
			want: `partial" quote`,
		},
		{
			name: "mismatched quotes untouched",
			raw:  `"mixed'`,
			want: `"mixed'`,
		},
		{
			name: "only one quote layer",
			raw:  `""nested""`,
			want: `"nested"`,
		},
		{
			name: "reformatted preamble",
			raw:  "Here's the reformatted text:\n\nDear team,",
			want: "Dear team,",
		},
		{
			name: "preamble case insensitive",
			raw:  "HERE IS THE REWRITTEN EMAIL: Hi",
			want: "Hi",
		},
		{
			name: "i have preamble",
			raw:  "I've reformatted the text for clarity:\nBody",
			want: "Body",
		},
		{
			name: "sure preamble",
			raw:  "Sure! Here's a cleaner version:\nBody",
			want: "Body",
		},
		{
			name: "vendor banner then preamble then quotes",
			raw:  "Loaded cached credentials.\nHere is the formatted text:\n\"Body\"",
			want: "Body",
		},
		{
			name: "preamble only at start",
			raw:  "Body first.\nHere's the reformatted text: not stripped",
			want: "Body first.\nHere's the reformatted text: not stripped",
		},
		{
			name: "ansi stripped",
			raw:  "\x1b[32mGreen text\x1b[0m",
			want: "Green text",
		},
		{
			name: "whitespace trimmed",
			raw:  "\n\n   plain   \n",
			want: "plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClean_Empty(t *testing.T) {
	for _, raw := range []string{"", "   \n", `""`, "Here's the reformatted text:", "[a] codex\n\n[a] tokens used: 1"} {
		_, err := Clean(raw)
		assert.True(t, errors.Is(err, ErrEmptyResponse), "raw=%q err=%v", raw, err)
	}
}

func TestClean_IdempotentOnCleanInput(t *testing.T) {
	inputs := []string{
		"Plain sentence.",
		"Multi\n\nparagraph\ntext",
		"- bullet one\n- bullet two",
		"Ends with quote\"",
		"Unicode: café ✓",
	}
	for _, in := range inputs {
		once, err := Clean(in)
		require.NoError(t, err)
		twice, err := Clean(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestSplit_SingleVariant(t *testing.T) {
	variants := Split("content", SplitOptions{OriginalInput: "in", OriginalPrompt: "prompt"})
	require.Len(t, variants, 1)
	v := variants[0]
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "content", v.Content)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, "in", v.OriginalInput)
	assert.Equal(t, "prompt", v.OriginalPrompt)
	assert.Nil(t, v.Error)
}

func TestSplit_UsesSuppliedID(t *testing.T) {
	variants := Split("x", SplitOptions{ID: "placeholder-1"})
	require.Len(t, variants, 1)
	assert.Equal(t, "placeholder-1", variants[0].ID)
}

func TestSplit_MintsDistinctIDs(t *testing.T) {
	a := Split("x", SplitOptions{})
	b := Split("x", SplitOptions{})
	assert.NotEqual(t, a[0].ID, b[0].ID)
}
