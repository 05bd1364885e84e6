// Package runlog persists the outcome of a run in the log directory.
//
// summary.json is a single shared slot overwritten by each successful run.
// Each run also keeps a zstd-compressed JSONL transcript of the raw model
// answers, written as they arrive.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SummaryFile is the name of the summary record in the log directory.
const SummaryFile = "summary.json"

// Entry is one written file.
type Entry struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// Summary is the record of a successful run.
type Summary struct {
	Branch        string  `json:"branch"`
	CommitMessage string  `json:"commit_message"`
	Outputs       []Entry `json:"outputs"`
}

// WriteSummary writes s to dir/summary.json, replacing the previous one.
func WriteSummary(dir string, s *Summary) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	out := *s
	if out.Outputs == nil {
		out.Outputs = []Entry{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	// Write then rename so a reader never sees a partial summary.
	p := filepath.Join(dir, SummaryFile)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // CI artifact, meant to be readable.
		return fmt.Errorf("write summary: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// LoadSummary reads dir/summary.json.
func LoadSummary(dir string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(dir, SummaryFile)) //nolint:gosec // fixed name under the configured log dir.
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", SummaryFile, err)
	}
	return &s, nil
}
