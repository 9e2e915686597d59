package main

import (
	"archive/tar"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// commitTimeFile is the build-provenance file inside a checkout holding the
// commit timestamp (decimal seconds since epoch) used for all archive entries.
const commitTimeFile = "build/util/LASTCHANGE.committime"

// ownerWriteBit is forced on for every archived entry so that an unpacked
// tree is always modifiable by its owner.
const ownerWriteBit = 0o200

// normalizeHeader rewrites a tar header in place so that archive bytes do not
// depend on the originating filesystem: one shared modification time, owner
// and group zeroed, owner-write permission forced on.
func normalizeHeader(hdr *tar.Header, mtime time.Time) {
	hdr.ModTime = mtime
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Mode |= ownerWriteBit
	hdr.Uid = 0
	hdr.Gid = 0
	hdr.Uname = "0"
	hdr.Gname = "0"
}

// readCommitTime reads the run-wide modification timestamp from the
// provenance file of the given checkout. A missing or malformed file is a
// fatal configuration error for the run.
func readCommitTime(fs afero.Fs, srcDir string) (time.Time, error) {
	raw, err := afero.ReadFile(fs, filepath.Join(srcDir, commitTimeFile))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read commit timestamp: %w", err)
	}

	secs, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse commit timestamp: %w", err)
	}

	return time.Unix(secs, 0).UTC(), nil
}
