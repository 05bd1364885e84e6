package generate

import "testing"

func TestStripFences(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   string
		want string
	}{
		{"NoFence", "package main\n\nfunc main() {}\n", "package main\n\nfunc main() {}"},
		{"NoFenceUntouchedInside", "a ``` b\n```", "a ``` b\n```"},
		{"FenceWithTag", "```text\nOK\n```", "OK"},
		{"FenceWithoutTag", "```\nline1\nline2\n```", "line1\nline2"},
		{"FenceLeadingWhitespace", "  \n```go\npackage x\n```\n\n", "package x"},
		{"FenceUnclosed", "```yaml\nkey: v\n", "key: v"},
		{"FenceNoLineBreak", "```OK```", ""},
		{"FenceOnly", "```", ""},
		{"NestedFence", "```markdown\n```bash\nnpm i\n```\n```", "npm i"},
		{"Empty", "", ""},
		{"Whitespace", " \t\n", ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripFencesIdempotent(t *testing.T) {
	for _, in := range []string{
		"```text\nOK\n```",
		"```go\npackage x\n\nfunc f() {}\n```",
		"plain text\n",
		"```OK```",
		"# Title\n\nbody ``` inline\n",
		"```markdown\n```bash\nnpm i\n```\n```",
		"```markdown\n```bash\nnpm i\n```\n\nMore text.\n```",
		"``````",
		"",
	} {
		once := StripFences(in)
		if twice := StripFences(once); twice != once {
			t.Errorf("StripFences not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestStripFencesRoundTrip(t *testing.T) {
	// Content without a fence prefix and without surrounding whitespace comes
	// back byte-identical.
	for _, in := range []string{"OK", "{\n  \"a\": 1\n}", "line\n```\nnot a prefix"} {
		if got := StripFences(in); got != in {
			t.Errorf("StripFences(%q) = %q, want unchanged", in, got)
		}
	}
}
