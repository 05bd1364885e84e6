package generate

import "strings"

const fence = "```"

// StripFences removes a markdown code fence the model may wrap its answer in
// despite being told not to.
//
// Cases:
//   - no fence prefix: the text is returned with surrounding whitespace trimmed;
//   - fence prefix followed by a line break: the backticks at both ends are
//     removed, then everything through the first line break (the language tag
//     line) is dropped;
//   - fence prefix with no line break: the result is empty, since there is no
//     content line to keep.
//
// The strip is repeated while the result still opens with a fence, so the
// output never starts with one and StripFences(StripFences(s)) ==
// StripFences(s).
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, fence) {
		s = strings.Trim(s, "`")
		_, rest, ok := strings.Cut(s, "\n")
		if !ok {
			return ""
		}
		s = strings.TrimSpace(rest)
	}
	return s
}
