package main

import (
	"context"
	"errors"
	"fmt"
)

// List writes to standard output the checkout-relative paths an export with
// the same options would keep, without building an archive.
//
// If sort is true, the paths are written in sorted order; otherwise, they are
// written in traversal order. The ctx parameter controls early cancellation.
func (prog *Program) List(ctx context.Context, opts ExportOptions, sort bool) error {
	if opts.SrcDir == "" {
		return errors.New("a source directory must be provided")
	}

	if info, err := prog.fs.Stat(opts.SrcDir); err != nil || !info.IsDir() {
		return fmt.Errorf("cannot find the src directory %s", opts.SrcDir)
	}

	paths, errs := prog.keptPathStream(ctx, opts, sort)

	for path := range paths {
		fmt.Fprintln(prog.stdout, path)
	}

	for err := range errs {
		if err != nil {
			return fmt.Errorf("failure during listing: %w", err)
		}
	}

	return nil
}
