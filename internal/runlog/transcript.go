package runlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/maruel/ksid"
)

// TranscriptExt is the file extension of transcripts.
const TranscriptExt = ".jsonl.zst"

// Record is one raw model answer.
type Record struct {
	Path  string    `json:"path"`
	Type  string    `json:"type"`
	Raw   string    `json:"raw"`
	Bytes int       `json:"bytes"` // Size after sanitizing.
	At    time.Time `json:"at"`
}

// Transcript appends Records to a compressed JSONL file. Every Append is
// flushed so the file is readable up to the last record even if the run dies.
type Transcript struct {
	Path string

	f   *os.File
	enc *zstd.Encoder
}

// OpenTranscript creates dir/<id>.jsonl.zst.
func OpenTranscript(dir string, id ksid.ID) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	p := filepath.Join(dir, id.String()+TranscriptExt)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // name is derived from ksid, not arbitrary user input.
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Transcript{Path: p, f: f, enc: enc}, nil
}

// Append writes r and flushes it to disk.
func (t *Transcript) Append(r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := t.enc.Write(append(data, '\n')); err != nil {
		return err
	}
	return t.enc.Flush()
}

// Close finishes the zstd frame and closes the file.
func (t *Transcript) Close() error {
	return errors.Join(t.enc.Close(), t.f.Close())
}

// ReadTranscript decodes all records of a transcript file. A transcript whose
// writer did not close cleanly is read up to the last flushed record.
func ReadTranscript(path string) ([]Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Record
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return out, fmt.Errorf("invalid transcript line %d: %w", len(out)+1, err)
		}
		out = append(out, r)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, err
	}
	return out, nil
}
