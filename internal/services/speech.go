package services

import (
	"regexp"
	"strings"
)

var (
	escapedControl   = regexp.MustCompile(`\\[nrt]`)
	markdownSymbols  = regexp.MustCompile("[`*_#>~\\-]")
	bracketSymbols   = regexp.MustCompile(`[{}\[\]|\\^]`)
	whitespaceRun    = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)
	spaceBeforePunct = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]([?.!])`)
)

// CleanForSpeech normalizes a generated answer for text-to-speech. The steps run in a fixed order.
func CleanForSpeech(text string) string {
	text = escapedControl.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, `\"`, `"`)
	text = strings.ReplaceAll(text, `\'`, `'`)
	text = markdownSymbols.ReplaceAllString(text, "")
	text = bracketSymbols.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
