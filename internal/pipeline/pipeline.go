// Package pipeline runs a task document end to end: generate every requested
// file, write it, publish the branch and record the summary.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/uaprod/internal/config"
	"github.com/maruel/uaprod/internal/failure"
	"github.com/maruel/uaprod/internal/generate"
	"github.com/maruel/uaprod/internal/gitutil"
	"github.com/maruel/uaprod/internal/payload"
	"github.com/maruel/uaprod/internal/publish"
	"github.com/maruel/uaprod/internal/runlog"
	"github.com/maruel/uaprod/internal/workspace"
)

// CompleterFactory builds the generation client for a model.
type CompleterFactory func(ctx context.Context, model string) (generate.Completer, error)

// Runner executes one task document. It is single use and not safe for
// concurrent runs on the same working tree.
type Runner struct {
	Dir      string // Working tree root.
	LogDir   string // Directory for summary.json and transcripts (required).
	Remote   string
	Identity config.Identity
	// Model is used when the task document names none. Empty lets the
	// provider choose.
	Model string

	// VCS publishes the change. Must be set before calling Run.
	VCS gitutil.VCS
	// NewCompleter builds the generation client once the model is known.
	// Must be set before calling Run.
	NewCompleter CompleterFactory
	// Now defaults to time.Now.
	Now func() time.Time
	// Log defaults to slog.Default(). Run adds the run ID and branch.
	Log *slog.Logger

	initOnce sync.Once
	id       ksid.ID
}

// NewRunner returns a Runner using the real git/gh CLIs and the configured
// genai provider.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		Dir:      cfg.Dir,
		LogDir:   cfg.LogDir,
		Remote:   cfg.Remote,
		Identity: cfg.Identity,
		Model:    cfg.Model,
		VCS:      &gitutil.Git{Dir: cfg.Dir, Timeout: cfg.GitTimeout},
		NewCompleter: func(ctx context.Context, model string) (generate.Completer, error) {
			return generate.NewProvider(ctx, cfg.Provider, cfg.APIKey, model)
		},
	}
}

func (r *Runner) initDefaults() {
	r.initOnce.Do(func() {
		if r.Now == nil {
			r.Now = time.Now
		}
		if r.Remote == "" {
			r.Remote = config.DefaultRemote
		}
		if r.Log == nil {
			r.Log = slog.Default()
		}
		r.id = ksid.NewID()
	})
}

// ID identifies this run in logs and the transcript file name.
func (r *Runner) ID() ksid.ID {
	r.initDefaults()
	return r.id
}

// Run processes req. On success it returns the summary, which has also been
// written to LogDir. On failure nothing already done is undone: written files
// stay on disk and a pushed branch stays pushed. The summary is only written
// after every step succeeded.
func (r *Runner) Run(ctx context.Context, req *payload.Request) (_ *runlog.Summary, retErr error) {
	r.initDefaults()
	if r.VCS == nil || r.NewCompleter == nil {
		return nil, errors.New("runner is missing VCS or NewCompleter")
	}
	model := req.Model
	if model == "" {
		model = r.Model
	}
	log := r.Log.With("run", r.id.String(), "branch", req.Branch)
	log.Info("starting run", "model", model, "outputs", len(req.Outputs))

	seq := &publish.Sequencer{VCS: r.VCS, Identity: r.Identity, Remote: r.Remote, Log: log}
	if err := seq.Prepare(ctx, req.Branch); err != nil {
		return nil, err
	}

	c, err := r.NewCompleter(ctx, model)
	if err != nil {
		return nil, failure.Generation("create generation client").Wrap(err).WithDetail("model", model)
	}
	gen := &generate.Generator{Completer: c, Log: log}
	w := &workspace.Writer{Root: r.Dir, Log: log}

	tr, err := runlog.OpenTranscript(r.LogDir, r.id)
	if err != nil {
		return nil, failure.Filesystem("open transcript").Wrap(err)
	}
	defer func() {
		if err := tr.Close(); err != nil && retErr == nil {
			retErr = failure.Filesystem("close transcript").Wrap(err)
		}
	}()

	sum := &runlog.Summary{
		Branch:        req.Branch,
		CommitMessage: req.CommitMessage,
		Outputs:       make([]runlog.Entry, 0, len(req.Outputs)),
	}
	for _, out := range req.Outputs {
		a, err := gen.Generate(ctx, req.Prompt, out)
		if err != nil {
			return nil, err
		}
		if err := tr.Append(&runlog.Record{Path: a.Path, Type: a.Type, Raw: a.Raw, Bytes: a.Bytes(), At: r.Now().UTC()}); err != nil {
			log.Warn("transcript append failed", "path", a.Path, "err", err)
		}
		for _, issue := range generate.ScanSecrets(a.Path, a.Content) {
			log.Warn("generated content flagged", "path", issue.File, "kind", issue.Kind, "detail", issue.Detail)
		}
		if err := w.Write(a.Path, a.Content); err != nil {
			return nil, err
		}
		sum.Outputs = append(sum.Outputs, runlog.Entry{Path: a.Path, Bytes: a.Bytes()})
	}

	err = seq.Publish(ctx, &publish.Options{
		Branch:        req.Branch,
		CommitMessage: req.CommitMessage,
		OpenPR:        req.PostActions.OpenPR,
		Title:         req.PostActions.Title,
		Base:          req.PostActions.Base,
		Meta:          req.Meta,
		Exclude:       r.stageExcludes(),
	})
	rep := seq.Report()
	if err != nil {
		log.Error("publish failed", "completed", rep.Done, "err", err)
		return nil, err
	}
	unchanged, extra := reconcile(sum.Outputs, rep.Committed)
	if len(unchanged) != 0 {
		log.Info("outputs identical to the previous commit", "paths", unchanged)
	}
	if len(extra) != 0 {
		log.Warn("commit includes files this run did not write", "paths", extra)
	}

	if err := runlog.WriteSummary(r.LogDir, sum); err != nil {
		return nil, failure.Filesystem("write summary").Wrap(err)
	}
	log.Info("run complete", "files", len(sum.Outputs), "added", rep.Committed.Added(), "deleted", rep.Committed.Deleted(), "review", rep.ReviewURL, "branchExisted", rep.BranchExisted)
	return sum, nil
}

// stageExcludes returns the pathspecs that keep the log directory out of the
// commit when it lives inside the working tree.
func (r *Runner) stageExcludes() []string {
	dir := r.Dir
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}
	absLog, err := filepath.Abs(r.LogDir)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(absDir, absLog)
	if err != nil || !filepath.IsLocal(rel) {
		return nil
	}
	if rel == "." {
		return []string{runlog.SummaryFile, runlog.SummaryFile + ".tmp", "*" + runlog.TranscriptExt}
	}
	return []string{filepath.ToSlash(rel)}
}

// reconcile compares the written outputs with the files the commit changed.
// unchanged lists outputs git saw no change for; extra lists committed files
// that are not outputs, such as leftovers already in the working tree.
func reconcile(outputs []runlog.Entry, committed gitutil.DiffStat) (unchanged, extra []string) {
	changed := committed.Paths()
	written := make(map[string]bool, len(outputs))
	for _, o := range outputs {
		p := path.Clean(filepath.ToSlash(o.Path))
		if !written[p] && !slices.Contains(changed, p) {
			unchanged = append(unchanged, p)
		}
		written[p] = true
	}
	for _, p := range changed {
		if !written[p] {
			extra = append(extra, p)
		}
	}
	return unchanged, extra
}
