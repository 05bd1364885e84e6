package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/uaprod/internal/failure"
)

func execute(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func(k string) string { return env[k] }, &slog.LevelVar{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	t.Run("NoArgs", func(t *testing.T) {
		out, err := execute(t, nil)
		if !failure.Is(err, failure.CodeUsage) {
			t.Fatalf("err = %v, want %s", err, failure.CodeUsage)
		}
		if got := failure.ExitCode(err); got != 2 {
			t.Errorf("exit = %d, want 2", got)
		}
		if !strings.Contains(out, "Usage:") {
			t.Errorf("usage not printed:\n%s", out)
		}
	})
	t.Run("TooManyArgs", func(t *testing.T) {
		if _, err := execute(t, nil, "a.json", "b.json"); !failure.Is(err, failure.CodeUsage) {
			t.Fatalf("err = %v, want %s", err, failure.CodeUsage)
		}
	})
	t.Run("UnknownFlag", func(t *testing.T) {
		if _, err := execute(t, nil, "--nope", "a.json"); !failure.Is(err, failure.CodeUsage) {
			t.Fatalf("err = %v, want %s", err, failure.CodeUsage)
		}
	})
	t.Run("MissingCredential", func(t *testing.T) {
		out, err := execute(t, nil, "payload.json")
		if !failure.Is(err, failure.CodeConfig) {
			t.Fatalf("err = %v, want %s", err, failure.CodeConfig)
		}
		if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
			t.Errorf("err = %v", err)
		}
		if strings.Contains(out, "Usage:") {
			t.Errorf("usage printed for a runtime error:\n%s", out)
		}
	})
	t.Run("ProviderFlag", func(t *testing.T) {
		_, err := execute(t, map[string]string{"OPENAI_API_KEY": "k"}, "--provider", "anthropic", "payload.json")
		if !failure.Is(err, failure.CodeConfig) || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("MissingPrompt", func(t *testing.T) {
		dir := t.TempDir()
		p := filepath.Join(dir, "task.yaml")
		if err := os.WriteFile(p, []byte("outputs:\n  - path: health.txt\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := execute(t, map[string]string{"OPENAI_API_KEY": "k"}, "--dir", dir, "--log-dir", filepath.Join(dir, "logs"), p)
		if !failure.Is(err, failure.CodeMissingRequiredField) {
			t.Fatalf("err = %v, want %s", err, failure.CodeMissingRequiredField)
		}
		if _, err := os.Stat(filepath.Join(dir, "health.txt")); !os.IsNotExist(err) {
			t.Errorf("health.txt must not be written: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
			t.Errorf("log dir must not be created: %v", err)
		}
	})
	t.Run("MissingPayload", func(t *testing.T) {
		_, err := execute(t, map[string]string{"OPENAI_API_KEY": "k"}, filepath.Join(t.TempDir(), "nope.json"))
		if err == nil || failure.ExitCode(err) != 1 {
			t.Fatalf("err = %v", err)
		}
	})
}
