package main

const (
	rootHelpShort = "export-tarball packages a source checkout into a reproducible tarball."

	rootHelpLong = `export-tarball packages a Chromium source checkout into a compressed tarball.

It walks the checkout, drops version-control metadata, bytecode caches and stray
build-output directories, and can additionally strip nonessential directories
(documentation, test fixtures, bundled toolchains) so that the resulting tarball
stays reasonably small. Entry metadata is normalized to a single commit timestamp
and a fixed owner, making the output byte-identical across machines for identical
checkouts. It supports these commands:

  export - build a compressed tarball from a source checkout
  list   - print the paths an export would keep, without archiving anything

The 'export' command prints verbose keep/drop decisions (when requested) to
standard output (stdout). Any encountered errors and operational messages are
printed to standard error (stderr).

Exit Codes:
  0 - Success
  2 - General failure (invalid input, I/O errors, compressor failure, etc.)

For detailed help on a specific command, run:
  export-tarball help <command>`

	exportHelpShort = "Export a source checkout as a compressed tarball"

	exportHelpLong = `Export a source checkout as a compressed tarball.

The command recursively packages everything under --src-dir into
<output-name>.tar.xz (or .tar.gz with --compress=gzip), stored inside the
archive under a single root directory named after --basename, which defaults
to the base of <output-name>. Version-control metadata, bytecode caches and
stray build-output directories are always dropped; --remove-nonessential-files
additionally strips directories not strictly required for building, while
preserving build-descriptor files (.gn, .gni, .grd, .grdp, .isolate, .pydeps)
and a small set of essential files wherever they are. --test-data packages
only the test fixture directories instead; fixtures absent from the checkout
are reported and skipped.

Every entry is written with the commit timestamp read from
build/util/LASTCHANGE.committime, owner and group zeroed and the owner-write
permission forced on, so identical checkouts produce byte-identical archives.

With --verbose, every decision is reported on standard output (stdout) as an
'A' (added) or 'D' (dropped) line. Errors and operational messages go to
standard error (stderr). The command returns with an exit code 0 in case of
success; an exit code 2 for any errors, including the compressor failing.`

	exportExample = `
# Export a checkout as chromium-135.0.7049.41.tar.xz:
export-tarball export chromium-135.0.7049.41 --src-dir=/var/chromium/src --version=135.0.7049.41

# Export a size-reduced tarball, reporting every decision:
export-tarball export chromium-135.0.7049.41 --src-dir=src --version=135.0.7049.41 \
  --remove-nonessential-files --verbose

# Export only the test fixtures, gzip-compressed:
export-tarball export chromium-135.0.7049.41-testdata --src-dir=src --version=135.0.7049.41 \
  --test-data --compress=gzip`

	listHelpShort = "List the paths an export would keep (sorted by default)"

	listHelpLong = `List the checkout-relative paths an export would keep, without archiving.

The command applies the same exclusion rules as 'export' and prints every
surviving path to standard output (stdout), directories with a trailing slash.
By default the paths are sorted alphabetically, which improves readability and
makes it easier to 'diff' against a previous run; --sort=false preserves the
traversal order instead.

Any operational output and encountered errors are written to standard error
(stderr). The command returns with an exit code 0 upon success; an exit code 2
for any encountered errors.`

	listExample = `
# Preview what a size-reduced export would keep:
export-tarball list --src-dir=/var/chromium/src --remove-nonessential-files

# Preserve the traversal order in the listing:
export-tarball list --src-dir=src --sort=false

# Use a specific on-disk temporary directory for very large checkouts:
export-tarball list --src-dir=src --tmpdir=/mnt/largedisk`
)
