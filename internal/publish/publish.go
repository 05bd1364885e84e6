// Package publish drives version control from a written working tree to an
// open pull request.
//
// The sequence is linear. Each step runs only if the previous one succeeded,
// and nothing is rolled back: a failed pull request leaves the pushed branch
// in place. The only tolerated failure is creating a branch that already
// exists, in which case the branch is checked out instead.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/maruel/uaprod/internal/config"
	"github.com/maruel/uaprod/internal/failure"
	"github.com/maruel/uaprod/internal/gitutil"
)

// Step is a stage of the sequence.
type Step int

// Steps, in execution order.
const (
	StepIdentify Step = iota
	StepBranch
	StepStage
	StepCommit
	StepPush
	StepReviewRequest
)

func (s Step) String() string {
	switch s {
	case StepIdentify:
		return "identify"
	case StepBranch:
		return "branch"
	case StepStage:
		return "stage"
	case StepCommit:
		return "commit"
	case StepPush:
		return "push"
	case StepReviewRequest:
		return "review_request"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Options is what Publish needs from the task document.
type Options struct {
	Branch        string
	CommitMessage string
	OpenPR        bool
	Title         string
	Base          string
	Meta          map[string]any
	// Exclude lists paths or globs, relative to the working tree, that are
	// never staged.
	Exclude []string
}

// Report lists the steps that completed.
type Report struct {
	Done          []Step
	BranchExisted bool             // CreateBranch failed and the branch was checked out.
	Committed     gitutil.DiffStat // Files changed by the commit.
	ReviewURL     string           // Set when a pull request was opened.
}

// Sequencer runs the publish steps against a VCS.
type Sequencer struct {
	VCS      gitutil.VCS
	Identity config.Identity
	Remote   string
	// Log defaults to slog.Default().
	Log *slog.Logger

	report Report
}

// Report returns the steps completed so far.
func (s *Sequencer) Report() Report {
	r := s.report
	r.Done = append([]Step(nil), s.report.Done...)
	r.Committed = append(gitutil.DiffStat(nil), s.report.Committed...)
	return r
}

func (s *Sequencer) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// Prepare configures the author and switches to branch, creating it when
// needed. It runs before any file is written so the files land on branch.
func (s *Sequencer) Prepare(ctx context.Context, branch string) error {
	log := s.log()
	log.Info("configuring git identity", "name", s.Identity.Name, "email", s.Identity.Email)
	if err := s.VCS.ConfigureIdentity(ctx, s.Identity.Name, s.Identity.Email); err != nil {
		return stepError(StepIdentify, err)
	}
	s.done(StepIdentify)

	log.Info("creating branch", "branch", branch)
	if err := s.VCS.CreateBranch(ctx, branch); err != nil {
		log.Warn("create branch failed, checking out existing branch", "branch", branch, "err", err)
		if err := s.VCS.CheckoutBranch(ctx, branch); err != nil {
			return stepError(StepBranch, err).WithDetail("branch", branch)
		}
		s.report.BranchExisted = true
	}
	s.done(StepBranch)
	return nil
}

// Publish stages, commits and pushes the working tree, then opens a pull
// request when o.OpenPR is set. Prepare must have succeeded.
func (s *Sequencer) Publish(ctx context.Context, o *Options) error {
	log := s.log()
	if err := s.VCS.StageAll(ctx, o.Exclude...); err != nil {
		return stepError(StepStage, err)
	}
	s.done(StepStage)

	log.Info("committing", "branch", o.Branch, "message", o.CommitMessage)
	ds, err := s.VCS.Commit(ctx, o.CommitMessage)
	if err != nil {
		return stepError(StepCommit, err)
	}
	s.report.Committed = ds
	s.done(StepCommit)
	log.Info("committed", "files", len(ds), "added", ds.Added(), "deleted", ds.Deleted())

	log.Info("pushing", "remote", s.Remote, "branch", o.Branch)
	if err := s.VCS.Push(ctx, s.Remote, o.Branch); err != nil {
		return stepError(StepPush, err).WithDetail("remote", s.Remote).WithDetail("branch", o.Branch)
	}
	s.done(StepPush)

	if !o.OpenPR {
		log.Info("pull request disabled", "branch", o.Branch)
		return nil
	}
	body, err := ReviewBody(o.Meta)
	if err != nil {
		return failure.Publish("encode meta").Wrap(err)
	}
	url, err := s.VCS.CreateReviewRequest(ctx, gitutil.ReviewRequest{
		Title: o.Title,
		Body:  body,
		Base:  o.Base,
		Head:  o.Branch,
	})
	if err != nil {
		return failure.Publish("create pull request").Wrap(err).WithDetail("base", o.Base).WithDetail("head", o.Branch)
	}
	s.report.ReviewURL = url
	s.done(StepReviewRequest)
	log.Info("pull request opened", "url", url, "base", o.Base, "head", o.Branch)
	return nil
}

func (s *Sequencer) done(step Step) {
	s.report.Done = append(s.report.Done, step)
}

// ReviewBody renders the pull request description. meta is embedded as a
// compact JSON object with sorted keys so it can be parsed back.
func ReviewBody(meta map[string]any) (string, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return "Automated by UA-Prod\n\nMeta: `" + string(b) + "`", nil
}

func stepError(step Step, err error) *failure.Error {
	return failure.VersionControl(step.String()).Wrap(err).WithDetail("step", step.String())
}
