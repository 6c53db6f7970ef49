package session

import (
	"regexp"
	"strings"
)

// maxSpeechChars caps how much reply text is handed to synthesis. Agents can
// produce multi-page answers; speaking more than this is useless to a
// listener and ties up a worker for minutes.
const maxSpeechChars = 2000

var (
	codeFenceRE  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRE = regexp.MustCompile("`([^`]*)`")
	linkRE       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRE    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	bulletRE     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	emphasisRE   = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	spaceRE      = regexp.MustCompile(`\s+`)
)

// prepareSpeech converts agent reply text into something a synthesis engine
// can read aloud: markdown structure is stripped (a voice cannot render a
// code block) and overlong text is cut at a word boundary with a trailing
// ellipsis.
func prepareSpeech(text string) string {
	text = codeFenceRE.ReplaceAllString(text, " ")
	text = inlineCodeRE.ReplaceAllString(text, "$1")
	text = linkRE.ReplaceAllString(text, "$1")
	text = headingRE.ReplaceAllString(text, "")
	text = bulletRE.ReplaceAllString(text, "")
	text = emphasisRE.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(spaceRE.ReplaceAllString(text, " "))

	runes := []rune(text)
	if len(runes) <= maxSpeechChars {
		return text
	}
	cut := string(runes[:maxSpeechChars])
	if idx := strings.LastIndexByte(cut, ' '); idx > maxSpeechChars/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
