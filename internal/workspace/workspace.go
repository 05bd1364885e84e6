// Package workspace writes generated files into the working tree.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maruel/uaprod/internal/failure"
)

// Writer writes files below Root.
type Writer struct {
	Root string
	Log  *slog.Logger // Defaults to slog.Default().
}

// Write stores content at rel, creating parent directories and replacing any
// existing file. rel must be a local path: absolute paths and paths that
// escape Root are rejected.
func (w *Writer) Write(rel, content string) error {
	p, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { //nolint:gosec // generated sources must be readable by tooling.
		return failure.Filesystem("create parent of "+rel).Wrap(err).WithDetail("path", rel)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil { //nolint:gosec // same as above.
		return failure.Filesystem("write "+rel).Wrap(err).WithDetail("path", rel)
	}
	log := w.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("wrote file", "path", rel, "bytes", len(content))
	return nil
}

func (w *Writer) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || !filepath.IsLocal(clean) {
		return "", failure.Filesystem("write "+rel).Wrap(fmt.Errorf("path %q is outside the working tree", rel)).WithDetail("path", rel)
	}
	root := w.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, clean), nil
}
