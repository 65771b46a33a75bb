package style

import "github.com/mattn/go-runewidth"

// RuneWidthDisplayLen is the East-Asian/emoji-aware DisplayLenFunc,
// wired for callers that want wcwidth-correct column counts instead of
// the default codepoint count.
func RuneWidthDisplayLen(s string) int {
	return runewidth.StringWidth(s)
}
