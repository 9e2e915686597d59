package main

import (
	"path"
	"regexp"
	"slices"
	"strings"
)

// keepFileExp matches build-descriptor and dependency-manifest files that
// `gn gen` needs even inside otherwise nonessential directories. The optional
// trailing group also covers derived variants such as *.pydeps.sha1.
var keepFileExp = regexp.MustCompile(`\.(gn|gni|grd|grdp|isolate|pydeps)(\.\S+)?$`)

// Entry describes one filesystem object under consideration for archiving.
type Entry struct {
	Path       string // path as visited on disk
	RelPath    string // slash-separated path relative to the checkout root
	Base       string // base filename
	IsDir      bool
	IsSymlink  bool
	BrokenLink bool // symlink whose target does not exist
}

// Filter decides per entry whether it belongs into the archive.
type Filter struct {
	rules              *RuleSet
	removeNonessential bool

	// Union of the nonessential and test fixture prefixes, applied only
	// when removeNonessential is set.
	prunedDirs []string
}

// NewFilter returns a [Filter] applying the given rules. When
// removeNonessential is true, the stricter subtree-exclusion rules for
// nonessential and test fixture directories are active as well.
func NewFilter(rules *RuleSet, removeNonessential bool) *Filter {
	prunedDirs := make([]string, 0, len(rules.NonessentialDirs)+len(rules.TestDirs))
	prunedDirs = append(prunedDirs, rules.NonessentialDirs...)
	prunedDirs = append(prunedDirs, rules.TestDirs...)

	return &Filter{
		rules:              rules,
		removeNonessential: removeNonessential,
		prunedDirs:         prunedDirs,
	}
}

// Keep reports whether the entry belongs into the archive. Rules are checked
// in order, with later rules being more specific overrides; entries matching
// no rule are kept.
func (f *Filter) Keep(e Entry) bool {
	// Beware of symlinks whose target is nonessential.
	if e.IsSymlink && e.BrokenLink {
		return false
	}

	if e.Base == "__pycache__" || strings.HasSuffix(e.Base, ".pyc") {
		return false
	}

	if e.Base == ".svn" || e.Base == "out" {
		// Since m132 devtools-frontend requires files in node_modules/<module>/out;
		// to prevent this happening again we exclude based on the path rather
		// than explicitly allowlisting.
		if !slices.Contains(strings.Split(path.Dir(e.RelPath), "/"), "node_modules") {
			return false
		}
	}

	if e.Base == ".git" {
		essential := false
		for _, prefix := range f.rules.EssentialGitDirs {
			if strings.HasPrefix(e.RelPath, prefix) {
				essential = true

				break
			}
		}
		if !essential {
			return false
		}
	}

	if f.removeNonessential {
		// WebKit change logs take quite a lot of space. This saves ~10 MB
		// in a compressed tarball.
		if strings.Contains(e.Path, "ChangeLog") {
			return false
		}

		keepFile := keepFileExp.MatchString(e.Base) ||
			slices.Contains(f.rules.EssentialFiles, e.RelPath)

		// Remove contents of nonessential directories. Directories themselves
		// are never dropped here, so empty shells may remain in the output;
		// this mirrors the long-standing tarball layout.
		if !keepFile && !e.IsDir && f.underPrunedDir(e.RelPath) {
			return false
		}
	}

	return true
}

func (f *Filter) underPrunedDir(relPath string) bool {
	for _, dir := range f.prunedDirs {
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			return true
		}
	}

	return false
}
