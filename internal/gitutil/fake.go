package gitutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fake is an in-memory VCS for tests. It records every call and fails the
// operations listed in Fail.
type Fake struct {
	// Branches that already exist; CreateBranch fails for them.
	Branches map[string]bool
	// Fail maps an operation name (as recorded in Calls) to the error it
	// returns.
	Fail map[string]error
	// URL is returned by CreateReviewRequest.
	URL string
	// Stats is returned by a successful Commit.
	Stats DiffStat

	Calls    []string
	Current  string
	Name     string
	Email    string
	Staged   bool
	Excluded []string // Exclude patterns of the last StageAll.
	Commits  []string
	Pushed   []string
	Reviews  []ReviewRequest
}

var _ VCS = (*Fake)(nil)

func (f *Fake) record(op string, args ...string) error {
	call := op
	if len(args) != 0 {
		call += " " + strings.Join(args, " ")
	}
	f.Calls = append(f.Calls, call)
	return f.Fail[op]
}

// ConfigureIdentity implements VCS.
func (f *Fake) ConfigureIdentity(_ context.Context, name, email string) error {
	if err := f.record("identity", name, email); err != nil {
		return err
	}
	f.Name, f.Email = name, email
	return nil
}

// CreateBranch implements VCS.
func (f *Fake) CreateBranch(_ context.Context, branch string) error {
	if err := f.record("create", branch); err != nil {
		return err
	}
	if f.Branches[branch] {
		return fmt.Errorf("fatal: a branch named '%s' already exists", branch)
	}
	if f.Branches == nil {
		f.Branches = map[string]bool{}
	}
	f.Branches[branch] = true
	f.Current = branch
	return nil
}

// CheckoutBranch implements VCS.
func (f *Fake) CheckoutBranch(_ context.Context, branch string) error {
	if err := f.record("checkout", branch); err != nil {
		return err
	}
	if !f.Branches[branch] {
		return fmt.Errorf("error: pathspec '%s' did not match any file(s) known to git", branch)
	}
	f.Current = branch
	return nil
}

// StageAll implements VCS.
func (f *Fake) StageAll(_ context.Context, exclude ...string) error {
	if err := f.record("add", exclude...); err != nil {
		return err
	}
	f.Staged = true
	f.Excluded = exclude
	return nil
}

// Commit implements VCS.
func (f *Fake) Commit(_ context.Context, message string) (DiffStat, error) {
	if err := f.record("commit", message); err != nil {
		return nil, err
	}
	if !f.Staged {
		return nil, errors.New("nothing to commit, working tree clean")
	}
	f.Commits = append(f.Commits, message)
	f.Staged = false
	return f.Stats, nil
}

// Push implements VCS.
func (f *Fake) Push(_ context.Context, remote, branch string) error {
	if err := f.record("push", remote, branch); err != nil {
		return err
	}
	f.Pushed = append(f.Pushed, remote+"/"+branch)
	return nil
}

// CreateReviewRequest implements VCS.
func (f *Fake) CreateReviewRequest(_ context.Context, rr ReviewRequest) (string, error) {
	if err := f.record("pr", rr.Base, rr.Head); err != nil {
		return "", err
	}
	f.Reviews = append(f.Reviews, rr)
	return f.URL, nil
}
