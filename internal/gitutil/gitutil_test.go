package gitutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Run("PublishFlow", func(t *testing.T) {
		clone, bare := initTestRepo(t, "main")
		g := &Git{Dir: clone, Timeout: time.Minute}
		ctx := t.Context()
		if err := g.ConfigureIdentity(ctx, "UA-Prod", "bot@users.noreply.github.com"); err != nil {
			t.Fatal(err)
		}
		if err := g.CreateBranch(ctx, "ua-prod-1"); err != nil {
			t.Fatal(err)
		}
		writeFile(t, filepath.Join(clone, "docs", "health.txt"), "OK")
		if err := g.StageAll(ctx); err != nil {
			t.Fatal(err)
		}
		ds, err := g.Commit(ctx, "Add health")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(DiffStat{{Path: "docs/health.txt", Added: 1}}, ds); diff != "" {
			t.Errorf("commit stats (-want +got):\n%s", diff)
		}
		if err := g.Push(ctx, "origin", "ua-prod-1"); err != nil {
			t.Fatal(err)
		}
		if got := gitOut(t, bare, "log", "-1", "--format=%an <%ae> %s", "ua-prod-1"); got != "UA-Prod <bot@users.noreply.github.com> Add health" {
			t.Errorf("remote head = %q", got)
		}
		if got := gitOut(t, bare, "show", "ua-prod-1:docs/health.txt"); got != "OK" {
			t.Errorf("pushed content = %q", got)
		}
	})
	t.Run("CreateExistingFails", func(t *testing.T) {
		clone, _ := initTestRepo(t, "main")
		runGit(t, clone, "branch", "taken")
		g := &Git{Dir: clone}
		err := g.CreateBranch(t.Context(), "taken")
		if err == nil {
			t.Fatal("expected error creating an existing branch")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("err = %v", err)
		}
		if err := g.CheckoutBranch(t.Context(), "taken"); err != nil {
			t.Fatal(err)
		}
		if got := gitOut(t, clone, "rev-parse", "--abbrev-ref", "HEAD"); got != "taken" {
			t.Errorf("HEAD = %q, want taken", got)
		}
	})
	t.Run("NothingToCommit", func(t *testing.T) {
		clone, _ := initTestRepo(t, "main")
		g := &Git{Dir: clone}
		if err := g.StageAll(t.Context()); err != nil {
			t.Fatal(err)
		}
		if _, err := g.Commit(t.Context(), "empty"); err == nil {
			t.Error("expected error on empty commit")
		}
	})
	t.Run("StageExcludes", func(t *testing.T) {
		clone, _ := initTestRepo(t, "main")
		g := &Git{Dir: clone}
		writeFile(t, filepath.Join(clone, "health.txt"), "OK")
		writeFile(t, filepath.Join(clone, "ua-prod-logs", "summary.json"), "{}")
		writeFile(t, filepath.Join(clone, "ua-prod-logs", "run.jsonl.zst"), "x")
		writeFile(t, filepath.Join(clone, "trace.jsonl.zst"), "x")
		if err := g.StageAll(t.Context(), "ua-prod-logs", "*.jsonl.zst"); err != nil {
			t.Fatal(err)
		}
		ds, err := g.Commit(t.Context(), "only outputs")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"health.txt"}, ds.Paths()); diff != "" {
			t.Errorf("committed (-want +got):\n%s", diff)
		}
	})
	t.Run("PushNoRemote", func(t *testing.T) {
		clone, _ := initTestRepo(t, "main")
		g := &Git{Dir: clone}
		if err := g.Push(t.Context(), "nope", "main"); err == nil {
			t.Error("expected error pushing to an unknown remote")
		}
	})
}

func TestFake(t *testing.T) {
	f := &Fake{Branches: map[string]bool{"existing": true}}
	ctx := t.Context()
	if err := f.CreateBranch(ctx, "existing"); err == nil {
		t.Error("expected error for existing branch")
	}
	if err := f.CheckoutBranch(ctx, "missing"); err == nil {
		t.Error("expected error for missing branch")
	}
	if _, err := f.Commit(ctx, "m"); err == nil {
		t.Error("expected error committing without staging")
	}
	if err := f.CheckoutBranch(ctx, "existing"); err != nil {
		t.Fatal(err)
	}
	if f.Current != "existing" {
		t.Errorf("Current = %q", f.Current)
	}
	want := []string{"create existing", "checkout missing", "commit m", "checkout existing"}
	if strings.Join(f.Calls, "|") != strings.Join(want, "|") {
		t.Errorf("Calls = %q, want %q", f.Calls, want)
	}
}

// initTestRepo creates a bare "remote" and a local clone with one commit on
// baseBranch. Returns the clone and bare directories.
func initTestRepo(t *testing.T, baseBranch string) (clone, bare string) { //nolint:unparam // baseBranch is parameterized for clarity.
	t.Helper()
	dir := t.TempDir()
	bare = filepath.Join(dir, "remote.git")
	clone = filepath.Join(dir, "clone")

	runGit(t, "", "init", "--bare", bare)
	runGit(t, "", "init", clone)
	runGit(t, clone, "config", "user.name", "Test")
	runGit(t, clone, "config", "user.email", "test@test.com")
	runGit(t, clone, "checkout", "-b", baseBranch)

	writeFile(t, filepath.Join(clone, "README.md"), "hello\n")
	runGit(t, clone, "add", ".")
	runGit(t, clone, "commit", "-m", "init")
	runGit(t, clone, "remote", "add", "origin", bare)
	runGit(t, clone, "push", "-u", "origin", baseBranch)
	return clone, bare
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	gitOut(t, dir, args...)
}

func gitOut(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}
