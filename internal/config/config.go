// Package config builds the process configuration once at startup.
//
// Business logic never reads the environment; it receives a *Config.
package config

import (
	"strings"
	"time"

	"github.com/maruel/uaprod/internal/failure"
)

// Defaults.
const (
	DefaultProvider    = "openai"
	DefaultLogDir      = "ua-prod-logs"
	DefaultRemote      = "origin"
	DefaultAuthorName  = "UA-Prod"
	DefaultAuthorEmail = "bot@users.noreply.github.com"
	DefaultGitTimeout  = time.Minute

	// DefaultOpenAIModel is used when the task document names no model and
	// the provider is openai.
	DefaultOpenAIModel = "gpt-4.1"
)

// credentialEnv maps a genai provider name to the environment variable holding
// its API key.
var credentialEnv = map[string]string{
	"anthropic":   "ANTHROPIC_API_KEY",
	"cerebras":    "CEREBRAS_API_KEY",
	"cohere":      "COHERE_API_KEY",
	"deepseek":    "DEEPSEEK_API_KEY",
	"gemini":      "GEMINI_API_KEY",
	"groq":        "GROQ_API_KEY",
	"huggingface": "HUGGINGFACE_API_KEY",
	"mistral":     "MISTRAL_API_KEY",
	"openai":      "OPENAI_API_KEY",
	"perplexity":  "PERPLEXITY_API_KEY",
	"togetherai":  "TOGETHER_API_KEY",
}

// Identity is the git author used for the commit.
type Identity struct {
	Name  string
	Email string
}

// Config holds everything the pipeline needs from the process environment.
type Config struct {
	Dir        string        // Working tree root; generated paths are relative to it.
	LogDir     string        // Directory for summary.json and run transcripts.
	Provider   string        // genai provider name, e.g. "openai".
	APIKey     string        // Credential for Provider.
	Model      string        // Used when the task document names no model; empty lets genai pick.
	Remote     string        // git remote to push to.
	GitTimeout time.Duration // Per-command timeout for git and gh.
	Identity   Identity
	Verbose    bool
}

// Load fills the zero fields of flags from getenv and the defaults, and
// returns the resulting configuration.
//
// A missing provider credential is an error: the generator cannot be
// constructed without it.
func Load(getenv func(string) string, flags Config) (*Config, error) {
	c := flags
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.Remote == "" {
		c.Remote = DefaultRemote
	}
	if c.GitTimeout <= 0 {
		c.GitTimeout = DefaultGitTimeout
	}
	if c.Provider == "" {
		c.Provider = getenv("UAPROD_PROVIDER")
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	c.Provider = strings.ToLower(c.Provider)
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.Identity.Name == "" {
		c.Identity.Name = orDefault(getenv("GIT_AUTHOR_NAME"), DefaultAuthorName)
	}
	if c.Identity.Email == "" {
		c.Identity.Email = orDefault(getenv("GIT_AUTHOR_EMAIL"), DefaultAuthorEmail)
	}
	if c.APIKey == "" {
		env := CredentialEnv(c.Provider)
		c.APIKey = getenv(env)
		if c.APIKey == "" {
			return nil, failure.Config(env+" is not set").WithDetail("provider", c.Provider)
		}
	}
	return &c, nil
}

// CredentialEnv returns the environment variable holding the API key for
// provider. Unknown providers use <PROVIDER>_API_KEY.
func CredentialEnv(provider string) string {
	if env, ok := credentialEnv[provider]; ok {
		return env
	}
	return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
}

// DefaultModel returns the model used for provider when the task document
// names none. Model names are provider specific, so only openai has one; other
// providers get "" and genai chooses.
func DefaultModel(provider string) string {
	if provider == "openai" {
		return DefaultOpenAIModel
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
