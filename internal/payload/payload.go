// Package payload loads and validates the task document that drives a run.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maruel/uaprod/internal/failure"
	"gopkg.in/yaml.v3"
)

// Defaults applied to absent fields.
const (
	DefaultCommitMessage = "UA-Prod commit"
	DefaultBase          = "main"
	DefaultType          = "text"
	BranchPrefix         = "ua-prod-"
)

// Format is the encoding of a task document.
type Format int

// Supported formats.
const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatOf picks the format from the file extension. Anything that is not
// .yaml or .yml is JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Output is one requested target file.
type Output struct {
	Path string // Relative to the working tree.
	Type string // Free-form content hint, e.g. "go", "markdown".
}

// PostActions configures the review request.
type PostActions struct {
	OpenPR bool
	Title  string
	Base   string
}

// Request is a validated task document with defaults applied.
//
// It is not mutated after Parse returns.
type Request struct {
	Model         string // Empty when the document names none; the runner picks a default.
	Branch        string
	CommitMessage string
	Prompt        string
	Outputs       []Output
	PostActions   PostActions
	Meta          map[string]any
}

// document is the wire shape. Pointers distinguish absent from zero.
type document struct {
	Model         string         `json:"model" yaml:"model"`
	CommitBranch  string         `json:"commit_branch" yaml:"commit_branch"`
	Branch        string         `json:"branch" yaml:"branch"`
	CommitMessage string         `json:"commit_message" yaml:"commit_message"`
	Prompt        *string        `json:"prompt" yaml:"prompt"`
	Outputs       []outputDoc    `json:"outputs" yaml:"outputs"`
	PostActions   postActionsDoc `json:"post_actions" yaml:"post_actions"`
	Meta          map[string]any `json:"meta" yaml:"meta"`
}

type outputDoc struct {
	Path string `json:"path" yaml:"path"`
	Type string `json:"type" yaml:"type"`
}

type postActionsDoc struct {
	OpenPR *bool  `json:"open_pr" yaml:"open_pr"`
	Title  string `json:"pr_title" yaml:"pr_title"`
	Into   string `json:"pr_into" yaml:"pr_into"`
}

// Load reads and parses the task document at path.
func Load(path string) (*Request, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, failure.MalformedPayload("read payload").Wrap(err).WithDetail("path", path)
	}
	return Parse(data, FormatOf(path))
}

// Parse decodes data and applies defaults relative to the current time.
func Parse(data []byte, f Format) (*Request, error) {
	return ParseAt(data, f, time.Now())
}

// ParseAt is Parse with an explicit clock, used for the default branch name.
//
// The default branch has one-second resolution: two runs started in the same
// second without an explicit branch get the same name.
func ParseAt(data []byte, f Format, now time.Time) (*Request, error) {
	var doc document
	if err := decode(data, f, &doc); err != nil {
		return nil, failure.MalformedPayload("decode " + f.String() + " payload").Wrap(err)
	}
	if doc.Prompt == nil || strings.TrimSpace(*doc.Prompt) == "" {
		return nil, failure.MissingField("prompt")
	}
	r := &Request{
		Model:         doc.Model,
		Branch:        doc.CommitBranch,
		CommitMessage: orDefault(doc.CommitMessage, DefaultCommitMessage),
		Prompt:        *doc.Prompt,
		Outputs:       make([]Output, 0, len(doc.Outputs)),
		Meta:          doc.Meta,
	}
	if r.Branch == "" {
		r.Branch = doc.Branch
	}
	if r.Branch == "" {
		r.Branch = DefaultBranch(now)
	}
	for i, o := range doc.Outputs {
		if o.Path == "" {
			return nil, failure.MissingField(fmt.Sprintf("outputs[%d].path", i)).WithDetail("index", i)
		}
		r.Outputs = append(r.Outputs, Output{Path: o.Path, Type: orDefault(o.Type, DefaultType)})
	}
	r.PostActions = PostActions{
		OpenPR: doc.PostActions.OpenPR == nil || *doc.PostActions.OpenPR,
		Title:  orDefault(doc.PostActions.Title, r.CommitMessage),
		Base:   orDefault(doc.PostActions.Into, DefaultBase),
	}
	if r.Meta == nil {
		r.Meta = map[string]any{}
	}
	// meta ends up JSON encoded in the pull request body; reject it now rather
	// than after the push.
	if _, err := json.Marshal(r.Meta); err != nil {
		return nil, failure.MalformedPayload("meta is not representable as JSON").Wrap(err).WithDetail("field", "meta")
	}
	return r, nil
}

// DefaultBranch returns the branch name used when the document names none.
func DefaultBranch(now time.Time) string {
	return BranchPrefix + now.UTC().Format("20060102150405")
}

func decode(data []byte, f Format, doc *document) error {
	if f == YAML {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return err
		}
		if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
			return errors.New("top level must be a mapping")
		}
		return node.Decode(doc)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) != 0 && trimmed[0] != '{' {
		return errors.New("top level must be an object")
	}
	d := json.NewDecoder(bytes.NewReader(data))
	if err := d.Decode(doc); err != nil {
		return err
	}
	if d.More() {
		return errors.New("trailing data after payload")
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
