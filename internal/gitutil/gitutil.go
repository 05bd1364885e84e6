// Package gitutil wraps the git and gh CLIs used to publish a change.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// VCS abstracts the version control and review hosting operations of a run.
type VCS interface {
	ConfigureIdentity(ctx context.Context, name, email string) error
	CreateBranch(ctx context.Context, branch string) error
	CheckoutBranch(ctx context.Context, branch string) error
	// StageAll stages every change except paths matching exclude.
	StageAll(ctx context.Context, exclude ...string) error
	// Commit records the staged changes and returns what the commit changed.
	Commit(ctx context.Context, message string) (DiffStat, error)
	Push(ctx context.Context, remote, branch string) error
	CreateReviewRequest(ctx context.Context, rr ReviewRequest) (url string, err error)
}

// ReviewRequest describes a pull request to open.
type ReviewRequest struct {
	Title string
	Body  string
	Base  string // Branch to merge into.
	Head  string // Branch carrying the change.
}

// Git implements VCS with the git and gh CLIs in Dir.
type Git struct {
	Dir     string
	Timeout time.Duration // Per command; zero means no timeout.
}

var _ VCS = (*Git)(nil)

// ConfigureIdentity sets the repository-local author.
func (g *Git) ConfigureIdentity(ctx context.Context, name, email string) error {
	if _, err := g.git(ctx, "config", "user.name", name); err != nil {
		return err
	}
	_, err := g.git(ctx, "config", "user.email", email)
	return err
}

// CreateBranch creates branch from HEAD and checks it out. It fails if the
// branch already exists.
func (g *Git) CreateBranch(ctx context.Context, branch string) error {
	_, err := g.git(ctx, "checkout", "-b", branch)
	return err
}

// CheckoutBranch checks out an existing branch.
func (g *Git) CheckoutBranch(ctx context.Context, branch string) error {
	_, err := g.git(ctx, "checkout", branch)
	return err
}

// StageAll stages every change in the working tree, including deletions.
// Each exclude is a path relative to Dir, or a glob, left unstaged.
func (g *Git) StageAll(ctx context.Context, exclude ...string) error {
	args := []string{"add", "-A"}
	if len(exclude) != 0 {
		args = append(args, "--", ".")
		for _, e := range exclude {
			args = append(args, ":(exclude)"+e)
		}
	}
	_, err := g.git(ctx, args...)
	return err
}

// Commit records the staged changes and returns the commit's numstat, with
// paths relative to Dir. git refuses when nothing is staged.
func (g *Git) Commit(ctx context.Context, message string) (DiffStat, error) {
	if _, err := g.git(ctx, "commit", "-m", message); err != nil {
		return nil, err
	}
	out, err := g.git(ctx, "show", "--numstat", "--relative", "--format=", "HEAD")
	if err != nil {
		return nil, err
	}
	return ParseDiffNumstat(out), nil
}

// Push pushes branch to remote and sets it as upstream.
func (g *Git) Push(ctx context.Context, remote, branch string) error {
	_, err := g.git(ctx, "push", "-u", remote, branch)
	return err
}

// CreateReviewRequest opens a pull request with gh and returns its URL.
func (g *Git) CreateReviewRequest(ctx context.Context, rr ReviewRequest) (string, error) {
	out, err := g.run(ctx, "gh", "pr", "create", "--title", rr.Title, "--body", rr.Body, "--base", rr.Base, "--head", rr.Head)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *Git) git(ctx context.Context, args ...string) (string, error) {
	return g.run(ctx, "git", args...)
}

func (g *Git) run(ctx context.Context, name string, args ...string) (string, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	slog.Debug("exec", "cmd", name, "args", args)
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // fixed binaries; args come from the task document, never a shell.
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return "", fmt.Errorf("%s %s: %w: %s", name, args[0], err, msg)
	}
	return stdout.String(), nil
}
