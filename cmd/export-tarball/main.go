/*
export-tarball packages a Chromium source checkout into a compressed tarball.

It walks the checkout, drops version-control metadata, bytecode caches and
stray build-output directories, and can additionally strip nonessential
directories (documentation, test fixtures, bundled toolchains) so that the
resulting tarball stays reasonably small. Entry metadata is normalized to a
single commit timestamp and a fixed owner, making the output byte-identical
across machines for identical checkouts. It supports these commands:

	export - build a compressed tarball from a source checkout
	list   - print the paths an export would keep, without archiving anything

The 'export' command prints verbose keep/drop decisions (when requested) to
standard output (stdout). Any encountered errors and operational messages are
printed to standard error (stderr).

Exit Codes:

	0 - Success
	2 - General failure (invalid input, I/O errors, compressor failure, etc.)
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/lanrat/extsort"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const (
	fsStreamBuffer = 1000

	exitTimeout     = 10 * time.Second
	exitCodeSuccess = 0
	exitCodeFailure = 2
)

var (
	// Version is automatically populated by the build process (Makefile).
	Version string

	//nolint:mnd
	pgzipConfigDefault = PgzipConfig{
		BlockSize:  1 << 20,               // Approximate size of blocks
		BlockCount: runtime.GOMAXPROCS(0), // Amount of blocks processing in parallel
	}

	//nolint:mnd
	extSortConfigDefault = extsort.Config{
		ChunkSize:          100_000,                       // Records per chunk (default: 1M)
		NumWorkers:         min(4, runtime.GOMAXPROCS(0)), // Parallel sorting/merging workers (default: 2)
		ChanBuffSize:       1,                             // Channel buffer size (default: 1)
		SortedChanBuffSize: 1000,                          // Output channel buffer (default: 1000)
		TempFilesDir:       "",                            // Temporary files directory (default: intelligent selection)
	}
)

// Program is the primary structure of the application.
type Program struct {
	fs       afero.Fs
	fsWalker Walker
	rules    *RuleSet

	stdout io.Writer
	stderr io.Writer

	pgzipConfig   *PgzipConfig
	extSortConfig *extsort.Config
}

// NewProgram returns a pointer to a new [Program].
func NewProgram(fs afero.Fs, stdout io.Writer, stderr io.Writer, pgzipConfig *PgzipConfig, extsortConfig *extsort.Config) *Program {
	var walker Walker

	if fs == nil {
		fs = afero.NewOsFs()
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	if pgzipConfig == nil {
		cfg := pgzipConfigDefault
		pgzipConfig = &cfg
	}

	if extsortConfig == nil {
		cfg := extSortConfigDefault
		extsortConfig = &cfg
	}

	if _, ok := fs.(*afero.OsFs); ok {
		walker = OSWalker{}
	} else {
		walker = AferoWalker{FS: fs}
	}

	return &Program{
		fs:            fs,
		fsWalker:      walker,
		rules:         DefaultRules(),
		stdout:        stdout,
		stderr:        stderr,
		pgzipConfig:   pgzipConfig,
		extSortConfig: extsortConfig,
	}
}

func newRootCmd(ctx context.Context, fs afero.Fs, stdout io.Writer, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "export-tarball",
		Short:             rootHelpShort,
		Long:              rootHelpLong,
		Version:           Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	exportOpts := ExportOptions{Compression: compressXz}
	var exportExcludes []string
	var exportExcludesFrom string
	exportCompressorConfig := pgzipConfigDefault
	exportCmd := &cobra.Command{
		Use:     "export <output-name>",
		Short:   exportHelpShort,
		Long:    exportHelpLong,
		Example: exportExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			prog := NewProgram(fs, stdout, stderr, &exportCompressorConfig, nil)

			excludes, err := prog.mergeExcludes(exportExcludes, exportExcludesFrom)
			if err != nil {
				return err
			}

			exportOpts.Output = args[0]
			exportOpts.Excludes = excludes

			return prog.Export(ctx, exportOpts)
		},
	}
	exportCmd.Flags().StringVar(&exportOpts.SrcDir, "src-dir", "", "path to the source checkout to package")
	exportCmd.Flags().StringVar(&exportOpts.Version, "version", "", "version identifier of the packaged sources")
	exportCmd.Flags().StringVar(&exportOpts.Basename, "basename", "", "root directory name inside the archive (default: base of <output-name>)")
	exportCmd.Flags().BoolVar(&exportOpts.RemoveNonessential, "remove-nonessential-files", false, "drop directories not strictly required for building")
	exportCmd.Flags().BoolVar(&exportOpts.TestData, "test-data", false, "package only the test fixture directories")
	exportCmd.Flags().BoolVar(&exportOpts.Verbose, "verbose", false, "report every keep/drop decision on stdout")
	exportCmd.Flags().BoolVar(&exportOpts.Progress, "progress", false, "let the xz compressor report its progress")
	exportCmd.Flags().StringVar(&exportOpts.Compression, "compress", compressXz, "compression backend to use (xz or gzip)")
	exportCmd.Flags().StringArrayVar(&exportExcludes, "exclude", nil, "pattern to exclude; can be repeated multiple times")
	exportCmd.Flags().StringVar(&exportExcludesFrom, "excludes-from", "", "file with exclude patterns, one per line")
	exportCmd.Flags().IntVar(&exportCompressorConfig.BlockSize, "blocksize", pgzipConfigDefault.BlockSize, "block size for gzip compressing")
	exportCmd.Flags().IntVar(&exportCompressorConfig.BlockCount, "blockcount", pgzipConfigDefault.BlockCount, "gzip blocks to compress in parallel")

	listOpts := ExportOptions{}
	var listExcludes []string
	var listExcludesFrom string
	listSort := true
	listSorterConfig := extSortConfigDefault
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   listHelpShort,
		Long:    listHelpLong,
		Example: listExample,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			prog := NewProgram(fs, stdout, stderr, nil, &listSorterConfig)

			excludes, err := prog.mergeExcludes(listExcludes, listExcludesFrom)
			if err != nil {
				return err
			}

			listOpts.Excludes = excludes

			return prog.List(ctx, listOpts, listSort)
		},
	}
	listCmd.Flags().StringVar(&listOpts.SrcDir, "src-dir", "", "path to the source checkout to examine")
	listCmd.Flags().BoolVar(&listOpts.RemoveNonessential, "remove-nonessential-files", false, "drop directories not strictly required for building")
	listCmd.Flags().BoolVar(&listOpts.TestData, "test-data", false, "examine only the test fixture directories")
	listCmd.Flags().StringArrayVar(&listExcludes, "exclude", nil, "pattern to exclude; can be repeated multiple times")
	listCmd.Flags().StringVar(&listExcludesFrom, "excludes-from", "", "file with exclude patterns, one per line")
	listCmd.Flags().BoolVar(&listSort, "sort", true, "sort the output list; for better comparability")
	listCmd.Flags().StringVar(&listSorterConfig.TempFilesDir, "tmpdir", extSortConfigDefault.TempFilesDir, "on-disk location for intermediate files")
	listCmd.Flags().IntVar(&listSorterConfig.NumWorkers, "workers", extSortConfigDefault.NumWorkers, "workers for concurrent operations")
	listCmd.Flags().IntVar(&listSorterConfig.ChunkSize, "chunksize", extSortConfigDefault.ChunkSize, "max records per worker before spilling to disk")

	rootCmd.AddCommand(exportCmd, listCmd)

	return rootCmd
}

func main() {
	var exitCode int

	defer func() {
		os.Exit(exitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		rootCmd := newRootCmd(ctx, afero.NewOsFs(), os.Stdout, os.Stderr)
		errChan <- rootCmd.Execute()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			exitCode = exitCodeFailure
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else {
			exitCode = exitCodeSuccess
		}

	case <-sigChan:
		fmt.Fprintln(os.Stderr, "interrupting...")
		cancel()

		select {
		case <-errChan:
			exitCode = exitCodeFailure
			fmt.Fprintln(os.Stderr, "interrupted (exited)")
		case <-time.After(exitTimeout):
			exitCode = exitCodeFailure
			fmt.Fprintln(os.Stderr, "interrupted (killed)")
		}
	}
}
