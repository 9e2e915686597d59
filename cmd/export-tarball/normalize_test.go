package main

import (
	"archive/tar"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Expectation: All identity and timestamp fields should be rewritten, with owner-write forced on.
func Test_NormalizeHeader_Success(t *testing.T) {
	mtime := time.Unix(1600000000, 0).UTC()

	hdr := &tar.Header{
		Name:    "src/a.txt",
		Mode:    0o444,
		Uid:     1000,
		Gid:     1000,
		Uname:   "builder",
		Gname:   "builder",
		ModTime: time.Unix(123456789, 0),
	}

	normalizeHeader(hdr, mtime)

	require.Equal(t, mtime, hdr.ModTime)
	require.Equal(t, 0, hdr.Uid)
	require.Equal(t, 0, hdr.Gid)
	require.Equal(t, "0", hdr.Uname)
	require.Equal(t, "0", hdr.Gname)
	require.EqualValues(t, 0o644, hdr.Mode)
}

// Expectation: Pre-existing owner-write permission should be left untouched.
func Test_NormalizeHeader_WritableMode_Success(t *testing.T) {
	hdr := &tar.Header{Name: "src/b.txt", Mode: 0o755}

	normalizeHeader(hdr, time.Unix(1600000000, 0))

	require.EqualValues(t, 0o755, hdr.Mode)
}

// Expectation: The provenance timestamp should be read and parsed from the checkout.
func Test_ReadCommitTime_Success(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/src/build/util/LASTCHANGE.committime", []byte("1600000000\n"), 0o644))

	mtime, err := readCommitTime(fs, "/src")
	require.NoError(t, err)
	require.Equal(t, time.Unix(1600000000, 0).UTC(), mtime)
}

// Expectation: A missing provenance file should raise an error.
func Test_ReadCommitTime_Missing_Error(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := readCommitTime(fs, "/src")
	require.Error(t, err)
	require.Contains(t, err.Error(), "commit timestamp")
}

// Expectation: A malformed provenance file should raise an error.
func Test_ReadCommitTime_Malformed_Error(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/src/build/util/LASTCHANGE.committime", []byte("not-a-number\n"), 0o644))

	_, err := readCommitTime(fs, "/src")
	require.Error(t, err)
	require.Contains(t, err.Error(), "commit timestamp")
}
