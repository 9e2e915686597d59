package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// A helper filesystem for tests to simulate file creation failure.
type errorFs struct {
	afero.Fs
}

func (e errorFs) Create(name string) (afero.File, error) {
	return nil, errors.New("simulated create failure")
}

// A helper filesystem walker for tests to simulate filesystem walk errors.
type errorWalker struct{}

func (errorWalker) WalkDir(path string, fn fs.WalkDirFunc) error {
	return fn(path, nil, errors.New("simulated walk failure"))
}

// A helper to build a minimal checkout with a provenance timestamp.
func newCheckoutFs(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/build/util/LASTCHANGE.committime", []byte("1600000000\n"), 0o644))

	return fs
}

// A helper to read back all entries of a gzip-compressed tarball.
func readArchive(t *testing.T, fs afero.Fs, path string) ([]*tar.Header, map[string]string) {
	t.Helper()

	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)

	tr := tar.NewReader(gzr)

	var headers []*tar.Header
	contents := map[string]string{}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		headers = append(headers, hdr)

		if hdr.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			require.NoError(t, err)
			contents[hdr.Name] = string(data)
		}
	}

	return headers, contents
}

func archiveNames(headers []*tar.Header) []string {
	names := make([]string, 0, len(headers))
	for _, hdr := range headers {
		names = append(names, hdr.Name)
	}

	return names
}

func gzipOpts(output string) ExportOptions {
	return ExportOptions{
		SrcDir:      "/src",
		Output:      output,
		Version:     "100.0.0.0",
		Compression: compressGzip,
	}
}

// Expectation: A tarball should be created with all kept paths under the basename, with real contents.
func Test_Program_Export_Success(t *testing.T) {
	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/.git/config", []byte("git"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/out/gen.txt", []byte("gen"), 0o644))

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)
	require.NoError(t, prog.Export(t.Context(), gzipOpts("/chromium-100")))

	headers, contents := readArchive(t, fs, "/chromium-100.tar.gz")

	require.ElementsMatch(t, []string{
		"chromium-100/",
		"chromium-100/a.txt",
		"chromium-100/build/",
		"chromium-100/build/util/",
		"chromium-100/build/util/LASTCHANGE.committime",
	}, archiveNames(headers))

	require.Equal(t, "hello", contents["chromium-100/a.txt"])

	for _, hdr := range headers {
		require.Equal(t, time.Unix(1600000000, 0).UTC(), hdr.ModTime.UTC(), hdr.Name)
		require.Equal(t, 0, hdr.Uid, hdr.Name)
		require.Equal(t, 0, hdr.Gid, hdr.Name)
		require.Equal(t, "0", hdr.Uname, hdr.Name)
		require.Equal(t, "0", hdr.Gname, hdr.Name)
		require.NotZero(t, hdr.Mode&ownerWriteBit, hdr.Name)
	}
}

// Expectation: Nonessential removal should drop fixture contents but keep build descriptors and overrides.
func Test_Program_Export_RemoveNonessential_Success(t *testing.T) {
	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/third_party/blink/web_tests/foo.html", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/third_party/blink/web_tests/BUILD.gn", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/chrome/test/data/webui/i18n_process_css_test.html", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/chrome/test/data/other.html", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/node_modules/dep/out/lib.js", []byte("x"), 0o644))

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)

	opts := gzipOpts("/chromium-100")
	opts.RemoveNonessential = true
	require.NoError(t, prog.Export(t.Context(), opts))

	headers, _ := readArchive(t, fs, "/chromium-100.tar.gz")
	names := archiveNames(headers)

	require.NotContains(t, names, "chromium-100/third_party/blink/web_tests/foo.html")
	require.NotContains(t, names, "chromium-100/chrome/test/data/other.html")
	require.Contains(t, names, "chromium-100/third_party/blink/web_tests/BUILD.gn")
	require.Contains(t, names, "chromium-100/chrome/test/data/webui/i18n_process_css_test.html")
	require.Contains(t, names, "chromium-100/node_modules/dep/out/lib.js")
	// Directory shells under pruned prefixes survive.
	require.Contains(t, names, "chromium-100/third_party/blink/web_tests/")
}

// Expectation: The same file is kept when nonessential removal is off.
func Test_Program_Export_KeepNonessential_Success(t *testing.T) {
	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/third_party/blink/web_tests/foo.html", []byte("x"), 0o644))

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)
	require.NoError(t, prog.Export(t.Context(), gzipOpts("/chromium-100")))

	headers, _ := readArchive(t, fs, "/chromium-100.tar.gz")
	require.Contains(t, archiveNames(headers), "chromium-100/third_party/blink/web_tests/foo.html")
}

// Expectation: Two runs over an identical checkout should produce identical per-entry metadata.
func Test_Program_Export_Reproducible_Success(t *testing.T) {
	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/b/c.txt", []byte("c"), 0o644))

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)
	require.NoError(t, prog.Export(t.Context(), gzipOpts("/first")))

	opts := gzipOpts("/second")
	opts.Basename = "first"
	require.NoError(t, prog.Export(t.Context(), opts))

	type meta struct {
		name         string
		mtime        time.Time
		uid, gid     int
		uname, gname string
		mode         int64
	}

	collect := func(path string) []meta {
		headers, _ := readArchive(t, fs, path)

		metas := make([]meta, 0, len(headers))
		for _, hdr := range headers {
			metas = append(metas, meta{hdr.Name, hdr.ModTime.UTC(), hdr.Uid, hdr.Gid, hdr.Uname, hdr.Gname, hdr.Mode})
		}

		return metas
	}

	require.Equal(t, collect("/first.tar.gz"), collect("/second.tar.gz"))
}

// Expectation: Test-data mode should package only present fixture directories and report absent ones.
func Test_Program_Export_TestData_Success(t *testing.T) {
	var stderr bytes.Buffer

	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/chrome/test/data/foo.html", []byte("x"), 0o644))

	prog := NewProgram(fs, io.Discard, &stderr, nil, nil)

	opts := gzipOpts("/chromium-100")
	opts.TestData = true
	require.NoError(t, prog.Export(t.Context(), opts))

	headers, _ := readArchive(t, fs, "/chromium-100.tar.gz")
	names := archiveNames(headers)

	require.Contains(t, names, "chromium-100/chrome/test/data/")
	require.Contains(t, names, "chromium-100/chrome/test/data/foo.html")
	require.NotContains(t, names, "chromium-100/a.txt")

	require.Contains(t, stderr.String(), "not present; skipping.")
}

// Expectation: Exclude patterns should prune matching subtrees from the archive.
func Test_Program_Export_WithExcludes_Success(t *testing.T) {
	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/docs/readme.md", []byte("x"), 0o644))

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)

	opts := gzipOpts("/chromium-100")
	opts.Excludes = []string{"docs"}
	require.NoError(t, prog.Export(t.Context(), opts))

	headers, _ := readArchive(t, fs, "/chromium-100.tar.gz")
	names := archiveNames(headers)

	require.Contains(t, names, "chromium-100/a.txt")
	require.NotContains(t, names, "chromium-100/docs/")
	require.NotContains(t, names, "chromium-100/docs/readme.md")
}

// Expectation: Verbose mode should report added and dropped paths with their tags.
func Test_Program_Export_Verbose_Success(t *testing.T) {
	var stdout bytes.Buffer

	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/.git/config", []byte("git"), 0o644))

	prog := NewProgram(fs, &stdout, io.Discard, nil, nil)

	opts := gzipOpts("/chromium-100")
	opts.Verbose = true
	require.NoError(t, prog.Export(t.Context(), opts))

	require.Contains(t, stdout.String(), "A\t/src/a.txt")
	require.Contains(t, stdout.String(), "D\t/src/.git")
}

// Expectation: A missing version identifier should raise an error before any traversal.
func Test_Program_Export_MissingVersion_Error(t *testing.T) {
	fs := newCheckoutFs(t)

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)

	opts := gzipOpts("/chromium-100")
	opts.Version = ""

	err := prog.Export(t.Context(), opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "version")
}

// Expectation: A missing source directory should raise an error before any traversal.
func Test_Program_Export_MissingSrcDir_Error(t *testing.T) {
	fs := afero.NewMemMapFs()

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)

	opts := gzipOpts("/chromium-100")
	opts.SrcDir = "/nowhere"

	err := prog.Export(t.Context(), opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "src directory")
}

// Expectation: A missing provenance timestamp should fail the run without leaving an output file.
func Test_Program_Export_MissingTimestamp_Error(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)

	err := prog.Export(t.Context(), gzipOpts("/chromium-100"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "commit timestamp")

	_, statErr := fs.Stat("/chromium-100.tar.gz")
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// Expectation: A context cancellation should be respected and the output file removed.
func Test_Program_Export_CtxCancel_Error(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))

	cancel()

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)
	require.ErrorIs(t, prog.Export(ctx, gzipOpts("/chromium-100")), context.Canceled)

	_, err := fs.Stat("/chromium-100.tar.gz")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// Expectation: An invalid compressor configuration should raise an error at runtime.
func Test_Program_Export_InvalidConfig_Error(t *testing.T) {
	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))

	cfg := PgzipConfig{
		BlockSize:  -1,
		BlockCount: -1,
	}

	prog := NewProgram(fs, io.Discard, io.Discard, &cfg, nil)
	require.Error(t, prog.Export(t.Context(), gzipOpts("/chromium-100")))

	_, err := fs.Stat("/chromium-100.tar.gz")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// Expectation: An unknown compression backend should raise an error and leave no output file.
func Test_Program_Export_UnknownCompression_Error(t *testing.T) {
	fs := newCheckoutFs(t)

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)

	opts := gzipOpts("/chromium-100")
	opts.Compression = "brotli"

	err := prog.Export(t.Context(), opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "compression backend")

	_, statErr := fs.Stat("/chromium-100.tar.xz")
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// Expectation: A create failure should raise the appropriate error.
func Test_Program_Export_CreateFile_Error(t *testing.T) {
	baseFs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(baseFs, "/src/build/util/LASTCHANGE.committime", []byte("1600000000\n"), 0o644))
	require.NoError(t, afero.WriteFile(baseFs, "/src/a.txt", []byte("hello"), 0o644))

	fs := errorFs{Fs: baseFs}

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)

	err := prog.Export(t.Context(), gzipOpts("/chromium-100"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "simulated create failure")
}

// Expectation: A walk failure should raise the appropriate error and the output file be removed.
func Test_Program_Export_WalkDir_Error(t *testing.T) {
	fs := newCheckoutFs(t)

	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644))

	prog := NewProgram(fs, io.Discard, io.Discard, nil, nil)
	prog.fsWalker = errorWalker{}

	err := prog.Export(t.Context(), gzipOpts("/chromium-100"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "simulated walk failure")

	_, statErr := fs.Stat("/chromium-100.tar.gz")
	require.ErrorIs(t, statErr, os.ErrNotExist)
}
