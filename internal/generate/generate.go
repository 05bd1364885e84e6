// Package generate produces file contents with a text generation service.
package generate

import (
	"context"
	"log/slog"

	"github.com/maruel/uaprod/internal/failure"
	"github.com/maruel/uaprod/internal/payload"
)

// Completer returns the model's answer for a system and a user instruction.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Artifact is the result of generating one output.
type Artifact struct {
	Path    string
	Type    string
	Raw     string // As returned by the service.
	Content string // After StripFences; this is what gets written.
}

// Bytes is the size of the written content.
func (a *Artifact) Bytes() int {
	return len(a.Content)
}

// Generator asks a Completer for one file at a time.
type Generator struct {
	Completer Completer
	Log       *slog.Logger // Defaults to slog.Default().
}

// Generate requests the content of out for the given brief. There is no retry:
// any service error is returned as a generation failure.
func (g *Generator) Generate(ctx context.Context, brief string, out payload.Output) (*Artifact, error) {
	log := g.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("generating", "path", out.Path, "type", out.Type)
	raw, err := g.Completer.Complete(ctx, SystemPrompt, UserPrompt(brief, out))
	if err != nil {
		return nil, failure.Generation("generate "+out.Path).Wrap(err).WithDetail("path", out.Path)
	}
	a := &Artifact{Path: out.Path, Type: out.Type, Raw: raw, Content: StripFences(raw)}
	log.Debug("generated", "path", out.Path, "raw", len(raw), "bytes", a.Bytes())
	return a, nil
}
