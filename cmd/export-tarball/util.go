package main

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lanrat/extsort"
	"github.com/spf13/afero"
)

// Walker is an interface describing a filesystem walking function.
type Walker interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// AferoWalker is an adapter to turn the [afero.Walk] into a [filepath.WalkDir] signature.
type AferoWalker struct {
	FS afero.Fs
}

// WalkDir is a method that adapts [afero.Walk] into a [filepath.WalkDir] compatible signature.
func (w AferoWalker) WalkDir(root string, fn fs.WalkDirFunc) error {
	return afero.Walk(w.FS, root, func(path string, info fs.FileInfo, err error) error { //nolint:wrapcheck
		var entry fs.DirEntry
		if info != nil {
			entry = fileInfoDirEntry{info}
		}

		return fn(path, entry, err)
	})
}

// OSWalker is a wrapper structure for the native [filepath.WalkDir] function.
type OSWalker struct{}

// WalkDir is a wrapper method for the native [filepath.WalkDir] function.
func (w OSWalker) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

type fileInfoDirEntry struct {
	fs.FileInfo
}

func (fi fileInfoDirEntry) Type() fs.FileMode {
	return fi.Mode().Type()
}

func (fi fileInfoDirEntry) Info() (fs.FileInfo, error) {
	return fi.FileInfo, nil
}

func (fi fileInfoDirEntry) IsDir() bool {
	return fi.Mode().IsDir()
}

func (fi fileInfoDirEntry) Name() string {
	return fi.FileInfo.Name()
}

func isExcluded(path string, isDir bool, excludes []string) (bool, error) {
	path = filepath.ToSlash(filepath.Clean(path))

	for _, rawPattern := range excludes {
		pattern := filepath.ToSlash(rawPattern)

		needDirMatch := strings.HasSuffix(pattern, "/")
		pattern = strings.TrimPrefix(strings.TrimSuffix(pattern, "/"), "/")

		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern: %w", err)
		}
		if matched {
			if needDirMatch && !isDir {
				continue
			}

			return true, nil
		}
	}

	return false, nil
}

func (prog *Program) mergeExcludes(excludeSlice []string, excludeFile string) ([]string, error) {
	excludes := []string{}

	if excludeFile != "" {
		file, err := prog.fs.Open(excludeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open exclude file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			excludes = append(excludes, line)
		}

		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed reading exclude file: %w", err)
		}
	}

	excludes = append(excludes, excludeSlice...)

	return excludes, nil
}

// walkEntry builds the filter's view of one visited filesystem object. The
// relative path is always computed against the checkout root, even when the
// walk itself was rooted at a test fixture directory.
func (prog *Program) walkEntry(srcDir string, path string, d fs.DirEntry) (Entry, error) {
	relPath, err := filepath.Rel(srcDir, path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to obtain relative path: %w", err)
	}

	entry := Entry{
		Path:      path,
		RelPath:   filepath.ToSlash(relPath),
		Base:      filepath.Base(path),
		IsDir:     d.IsDir(),
		IsSymlink: d.Type()&fs.ModeSymlink != 0,
	}

	if entry.IsSymlink {
		if _, err := prog.fs.Stat(path); err != nil {
			entry.BrokenLink = true
		}
	}

	return entry, nil
}

// walkFiltered walks one root, consults the filter (and any user exclude
// patterns) per entry and hands every kept entry to emit. Dropped directories
// prune recursion; dropped files are skipped individually.
func (prog *Program) walkFiltered(ctx context.Context, opts ExportOptions, filter *Filter, root string, emit func(Entry, fs.DirEntry) error) error {
	return prog.fsWalker.WalkDir(root, func(path string, d fs.DirEntry, err error) error { //nolint:wrapcheck
		if err := ctx.Err(); err != nil {
			return ctx.Err()
		}

		if err != nil {
			return fmt.Errorf("failed to walk filesystem: %w", err)
		}

		entry, err := prog.walkEntry(opts.SrcDir, path, d)
		if err != nil {
			return err
		}

		if excluded, err := isExcluded(entry.RelPath, d.IsDir(), opts.Excludes); err != nil {
			return err
		} else if excluded {
			prog.report(opts.Verbose, 'D', path)

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !filter.Keep(entry) {
			prog.report(opts.Verbose, 'D', path)

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		prog.report(opts.Verbose, 'A', path)

		return emit(entry, d)
	})
}

func (prog *Program) report(verbose bool, tag byte, path string) {
	if verbose {
		fmt.Fprintf(prog.stdout, "%c\t%s\n", tag, path)
	}
}

// testDataRoots resolves the test fixture directories of a checkout, printing
// a skip notice for any that are absent. A directory may not exist depending
// on the milestone the tarball is built for, so absence is not an error.
func (prog *Program) testDataRoots(srcDir string) []string {
	roots := make([]string, 0, len(prog.rules.TestDirs))

	for _, dir := range prog.rules.TestDirs {
		testDir := filepath.Join(srcDir, dir)

		info, err := prog.fs.Stat(testDir)
		if err != nil || !info.IsDir() {
			fmt.Fprintf(prog.stderr, "%q not present; skipping.\n", testDir)

			continue
		}

		roots = append(roots, testDir)
	}

	return roots
}

// keptPathStream streams the checkout-relative paths an export would keep,
// optionally sorted. Directories carry a trailing slash.
func (prog *Program) keptPathStream(ctx context.Context, opts ExportOptions, sort bool) (<-chan string, <-chan error) {
	paths := make(chan string, fsStreamBuffer)
	errs := make(chan error, 1)

	go func() {
		defer close(paths)
		defer close(errs)

		filter := NewFilter(prog.rules, opts.RemoveNonessential)

		roots := []string{opts.SrcDir}
		if opts.TestData {
			roots = prog.testDataRoots(opts.SrcDir)
		}

		for _, root := range roots {
			if err := prog.walkFiltered(ctx, opts, filter, root, func(entry Entry, _ fs.DirEntry) error {
				if entry.RelPath == "." {
					return nil
				}

				relPath := entry.RelPath
				if entry.IsDir {
					relPath += "/"
				}

				paths <- relPath

				return nil
			}); err != nil {
				errs <- fmt.Errorf("failed to stream from fs: %w", err)

				return
			}
		}
	}()

	if !sort {
		return paths, errs
	}

	return extsortStrings(ctx, paths, errs, prog.extSortConfig)
}

// extsortStrings wraps [extsort.Strings] for internal use.
//
// It merges two possible error sources into a single channel:
//  1. Runtime sorting errors - any errors raised while sorting proceeds.
//  2. extErrs (optional) - errors from non-sorting work such as tree-walking.
//
// Do note that only the first error observed from these sources is sent downstream.
func extsortStrings(ctx context.Context, input <-chan string, extErrs <-chan error, config *extsort.Config) (<-chan string, <-chan error) {
	sorter, sorterOut, sorterErrs := extsort.Strings(input, config)

	if sorter != nil {
		go sorter.Sort(ctx)
	}

	mergedErrs := make(chan error, 1)
	go func() {
		defer close(mergedErrs)

		for extErrs != nil || sorterErrs != nil {
			select {
			case err, ok := <-extErrs:
				if ok && err != nil {
					mergedErrs <- err

					return
				}
				extErrs = nil // channel closed, disable case.

			case err, ok := <-sorterErrs:
				if ok && err != nil {
					mergedErrs <- err

					return
				}
				sorterErrs = nil // channel closed, disable case.
			}
		}
	}()

	return sorterOut, mergedErrs
}
