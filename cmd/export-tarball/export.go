package main

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// ExportOptions are the run parameters of one archive construction.
type ExportOptions struct {
	SrcDir             string   // source checkout root
	Output             string   // output path, without the compression extension
	Basename           string   // archive-internal root name; base of Output when empty
	Version            string   // release identifier; required, not embedded
	Compression        string   // compression backend, xz by default
	RemoveNonessential bool     // drop nonessential and test fixture contents
	TestData           bool     // package only the test fixture directories
	Verbose            bool     // report keep/drop decisions on stdout
	Progress           bool     // let the xz compressor report progress
	Excludes           []string // additional user exclude patterns
}

func (opts ExportOptions) basename() string {
	if opts.Basename != "" {
		return opts.Basename
	}

	return filepath.Base(opts.Output)
}

// Export builds a compressed tarball of the source checkout.
//
// All entries are filtered through the exclusion rules, rooted under the
// archive basename and written with normalized metadata, so that identical
// checkouts produce byte-identical archives. With opts.TestData set, only the
// test fixture directories are packaged; ones absent from the checkout are
// skipped with a notice. The ctx parameter controls early cancellation.
func (prog *Program) Export(ctx context.Context, opts ExportOptions) error {
	var exportDone bool

	if opts.Version == "" {
		return errors.New("a version identifier must be provided")
	}

	if opts.SrcDir == "" {
		return errors.New("a source directory must be provided")
	}

	if info, err := prog.fs.Stat(opts.SrcDir); err != nil || !info.IsDir() {
		return fmt.Errorf("cannot find the src directory %s", opts.SrcDir)
	}

	if opts.Compression == "" {
		opts.Compression = compressXz
	}

	// Read once, before any traversal; shared by every entry.
	mtime, err := readCommitTime(prog.fs, opts.SrcDir)
	if err != nil {
		return err
	}

	output := opts.Output + outputExtension(opts.Compression)

	out, err := prog.fs.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	defer func() {
		if !exportDone {
			_ = prog.fs.Remove(output)
		}
	}()
	defer out.Close()

	comp, err := prog.newCompressor(ctx, opts.Compression, opts.Progress, out)
	if err != nil {
		return err
	}

	compClosed := false
	defer func() {
		if !compClosed {
			_ = comp.Close()
		}
	}()

	tw := tar.NewWriter(comp)

	filter := NewFilter(prog.rules, opts.RemoveNonessential)
	basename := opts.basename()

	emit := func(entry Entry, d fs.DirEntry) error {
		return prog.writeEntry(tw, entry, d, basename, mtime)
	}

	roots := []string{opts.SrcDir}
	if opts.TestData {
		roots = prog.testDataRoots(opts.SrcDir)
	}

	for _, root := range roots {
		if err := prog.walkFiltered(ctx, opts, filter, root, emit); err != nil {
			return fmt.Errorf("failure during export: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	compClosed = true
	if err := comp.Close(); err != nil {
		return err
	}

	exportDone = true

	return nil
}

// writeEntry serializes one kept filesystem object into the archive, stored
// under the archive basename with normalized metadata.
func (prog *Program) writeEntry(tw *tar.Writer, entry Entry, d fs.DirEntry, basename string, mtime time.Time) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to stat entry: %w", err)
	}

	var linkTarget string
	if entry.IsSymlink {
		if linkTarget, err = prog.readLink(entry.Path); err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(info, linkTarget)
	if err != nil {
		return fmt.Errorf("failed to build tar header: %w", err)
	}

	hdr.Name = path.Join(basename, entry.RelPath)
	if entry.IsDir {
		hdr.Name += "/"
	}

	normalizeHeader(hdr, mtime)

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	file, err := prog.fs.Open(entry.Path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("failed to write file contents: %w", err)
	}

	return nil
}

func (prog *Program) readLink(path string) (string, error) {
	lr, ok := prog.fs.(afero.LinkReader)
	if !ok {
		return "", fmt.Errorf("failed to read symlink %s: %w", path, afero.ErrNoReadlink)
	}

	target, err := lr.ReadlinkIfPossible(path)
	if err != nil {
		return "", fmt.Errorf("failed to read symlink: %w", err)
	}

	return target, nil
}
