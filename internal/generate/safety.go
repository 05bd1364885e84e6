// Secret and size checks on generated content.
package generate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// maxFileSize is the threshold above which a generated file triggers a warning.
const maxFileSize = 500 * 1024 // 500 KB

// secretPatterns are compiled regexps that match common secret material in
// generated content. Pattern strings are split so they don't match themselves.
var secretPatterns = []*secretPattern{
	{regexp.MustCompile(`AK` + `IA[0-9A-Z]{16}`), "AWS access key"},
	{regexp.MustCompile(`-{5}` + `BEGIN\s+(RSA|DSA|EC|OPENSSH|PGP)\s+PRIV` + `ATE\s+KEY-{5}`), "private key"},
	{regexp.MustCompile(`gh` + `p_[A-Za-z0-9_]{36}`), "GitHub personal access token"},
	{regexp.MustCompile(`gh` + `o_[A-Za-z0-9_]{36}`), "GitHub OAuth token"},
	{regexp.MustCompile(`github` + `_pat_[A-Za-z0-9_]{22,}`), "GitHub fine-grained PAT"},
	{regexp.MustCompile(`sk` + `-[A-Za-z0-9]{20,}`), "API secret key"},
	{regexp.MustCompile(`(?i)(pass` + `word|sec` + `ret|to` + `ken|api[_-]?key)\s*[:=]\s*['"][^'"]{8,}`), "hardcoded credential"},
}

type secretPattern struct {
	re   *regexp.Regexp
	desc string
}

// Issue is a finding of ScanSecrets.
type Issue struct {
	File   string
	Kind   string // "secret" or "large_file".
	Detail string
}

// ScanSecrets looks for likely secrets and oversized output in content. Each
// pattern is reported at most once per file. Findings are advisory.
func ScanSecrets(path, content string) []Issue {
	var issues []Issue
	if len(content) > maxFileSize {
		issues = append(issues, Issue{
			File:   path,
			Kind:   "large_file",
			Detail: fmt.Sprintf("generated file is %s (limit %s)", humanSize(int64(len(content))), humanSize(maxFileSize)),
		})
	}
	seen := make(map[string]bool)
	for line := range strings.SplitSeq(content, "\n") {
		for _, sp := range secretPatterns {
			if seen[sp.desc] || !sp.re.MatchString(line) {
				continue
			}
			seen[sp.desc] = true
			slog.Warn("secret pattern matched", "file", path, "pattern", sp.desc)
			issues = append(issues, Issue{
				File:   path,
				Kind:   "secret",
				Detail: fmt.Sprintf("possible %s detected", sp.desc),
			})
		}
	}
	return issues
}

// humanSize formats bytes as a human-readable string.
func humanSize(b int64) string {
	switch {
	case b >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%.0f KB", float64(b)/1024)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
