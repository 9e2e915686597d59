// mktree synthesizes a small Chromium-shaped checkout for exercising
// export-tarball against a real filesystem, including the provenance
// timestamp file and entries every exclusion rule should act on.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

var dirs = []string{
	".git",
	"out/Release",
	"build/util",
	"chrome/app",
	"chrome/test/data/webui",
	"third_party/blink/web_tests/css",
	"third_party/devtools-frontend/node_modules/dep/out",
	"third_party/rust-src/.git",
	"tools/__pycache__",
	"v8/test/torque",
}

var files = map[string]string{
	".git/config":                                            "[core]\n",
	"BUILD.gn":                                               "group(\"all\") {}\n",
	"chrome/app/main.cc":                                     "int main() {}\n",
	"chrome/test/data/webui/i18n_process_css_test.html":      "<html></html>\n",
	"chrome/test/data/page.html":                             "<html></html>\n",
	"out/Release/gen.txt":                                    "generated\n",
	"third_party/WebKit/ChangeLog":                           "changes\n",
	"third_party/blink/web_tests/css/test.html":              "<html></html>\n",
	"third_party/blink/web_tests/BUILD.gn":                   "group(\"web_tests\") {}\n",
	"third_party/devtools-frontend/node_modules/dep/out/lib": "bundled\n",
	"third_party/rust-src/.git/HEAD":                         "ref: refs/heads/main\n",
	"tools/__pycache__/run.cpython-311.pyc":                  "\x00",
	"tools/run.py":                                           "print('hi')\n",
	"v8/test/torque/test-torque.tq":                          "// torque\n",
}

func createCheckout(fs afero.Fs, base string) error {
	for _, dir := range dirs {
		if err := fs.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			return fmt.Errorf("error creating dir: %w", err)
		}
	}

	for name, content := range files {
		path := filepath.Join(base, name)

		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("error creating dir: %w", err)
		}

		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("error creating file: %w", err)
		}
	}

	committime := fmt.Sprintf("%d\n", time.Now().Unix())
	if err := afero.WriteFile(fs, filepath.Join(base, "build/util/LASTCHANGE.committime"), []byte(committime), 0o644); err != nil {
		return fmt.Errorf("error creating timestamp file: %w", err)
	}

	// A dangling symlink, for the broken-link rule.
	if linker, ok := fs.(afero.Linker); ok {
		target := filepath.Join(base, "third_party/missing-target")
		if err := linker.SymlinkIfPossible(target, filepath.Join(base, "tools/dangling")); err != nil {
			return fmt.Errorf("error creating symlink: %w", err)
		}
	}

	return nil
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: mktree <base_dir>\n")
		os.Exit(1)
	}

	if err := createCheckout(afero.NewOsFs(), os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "created checkout at %s\n", os.Args[1])
}
