package gitutil

import (
	"path"
	"strconv"
	"strings"
)

// FileStat is the change to one file in a commit.
type FileStat struct {
	Path    string // Slash separated; for a rename, the new path.
	Added   int
	Deleted int
	Binary  bool
}

// DiffStat lists the files changed by a commit, in git's order.
type DiffStat []FileStat

// Added returns the total number of added lines.
func (d DiffStat) Added() int {
	n := 0
	for _, f := range d {
		n += f.Added
	}
	return n
}

// Deleted returns the total number of deleted lines.
func (d DiffStat) Deleted() int {
	n := 0
	for _, f := range d {
		n += f.Deleted
	}
	return n
}

// Paths returns the changed paths.
func (d DiffStat) Paths() []string {
	out := make([]string, len(d))
	for i, f := range d {
		out[i] = f.Path
	}
	return out
}

// ParseDiffNumstat parses `git show --numstat` output. Lines are
// "<added>\t<deleted>\t<path>"; binary files report "-" for both counts and
// renames use git's "old => new" or "dir/{old => new}" notation. Lines that do
// not match are skipped.
func ParseDiffNumstat(numstat string) DiffStat {
	var ds DiffStat
	for line := range strings.SplitSeq(numstat, "\n") {
		added, rest, ok := strings.Cut(strings.TrimSpace(line), "\t")
		if !ok {
			continue
		}
		deleted, p, ok := strings.Cut(rest, "\t")
		if !ok || p == "" {
			continue
		}
		fs := FileStat{Path: renamedPath(p)}
		if added == "-" && deleted == "-" {
			fs.Binary = true
		} else {
			var err1, err2 error
			fs.Added, err1 = strconv.Atoi(added)
			fs.Deleted, err2 = strconv.Atoi(deleted)
			if err1 != nil || err2 != nil {
				continue
			}
		}
		ds = append(ds, fs)
	}
	return ds
}

// renamedPath returns the destination of a numstat rename, or p unchanged.
func renamedPath(p string) string {
	if i := strings.IndexByte(p, '{'); i >= 0 {
		if j := strings.IndexByte(p[i:], '}'); j > 0 {
			if _, to, ok := strings.Cut(p[i+1:i+j], " => "); ok {
				return path.Clean(p[:i] + to + p[i+j+1:])
			}
		}
	}
	if _, to, ok := strings.Cut(p, " => "); ok {
		return to
	}
	return p
}
