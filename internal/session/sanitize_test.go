package session

import (
	"strings"
	"testing"
)

func TestPrepareSpeechStripsMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "code fence removed",
			in:   "Run this:\n```bash\nrm -rf /tmp/x\n```\nthen retry.",
			want: "Run this: then retry.",
		},
		{
			name: "inline code kept as text",
			in:   "Use the `config` message.",
			want: "Use the config message.",
		},
		{
			name: "link keeps label",
			in:   "See [the docs](https://example.com/docs) for details.",
			want: "See the docs for details.",
		},
		{
			name: "headings and bullets flattened",
			in:   "## Steps\n- first\n- second",
			want: "Steps first second",
		},
		{
			name: "emphasis markers dropped",
			in:   "This is **very** important, *really*.",
			want: "This is very important, really.",
		},
		{
			name: "whitespace collapsed",
			in:   "too   many\n\n\nspaces",
			want: "too many spaces",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := prepareSpeech(tc.in); got != tc.want {
				t.Errorf("prepareSpeech(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPrepareSpeechTruncatesLongText(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 1000) // 5000 chars
	got := prepareSpeech(long)

	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated text does not end with ellipsis: %q", got[len(got)-20:])
	}
	if n := len([]rune(got)); n > maxSpeechChars+1 {
		t.Errorf("truncated length = %d runes, want <= %d", n, maxSpeechChars+1)
	}
	// Cut lands on a word boundary, not mid-word.
	trimmed := strings.TrimSuffix(got, "…")
	if strings.HasSuffix(trimmed, " ") {
		t.Errorf("trailing space survived truncation: %q", trimmed[len(trimmed)-10:])
	}
	if !strings.HasSuffix(trimmed, "word") {
		t.Errorf("cut split a word: %q", trimmed[len(trimmed)-10:])
	}
}

func TestPrepareSpeechShortTextUnchanged(t *testing.T) {
	t.Parallel()

	if got := prepareSpeech("Hello there."); got != "Hello there." {
		t.Errorf("got %q", got)
	}
	if got := prepareSpeech(""); got != "" {
		t.Errorf("empty input produced %q", got)
	}
}
