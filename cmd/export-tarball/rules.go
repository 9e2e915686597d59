package main

// RuleSet holds the static exclusion configuration for one run. All slices
// are treated as immutable after construction.
type RuleSet struct {
	// NonessentialDirs are checkout-relative prefixes whose file contents
	// are dropped when nonessential removal is active.
	NonessentialDirs []string

	// EssentialFiles are exact checkout-relative paths that survive
	// nonessential removal even under an excluded prefix.
	EssentialFiles []string

	// EssentialGitDirs are checkout-relative prefixes under which .git
	// directories are kept. Entries carry a trailing slash.
	EssentialGitDirs []string

	// TestDirs are test fixture locations, dropped during nonessential
	// removal and used as the traversal roots of test-data mode.
	TestDirs []string
}

// DefaultRules returns the exclusion configuration for a Chromium checkout.
func DefaultRules() *RuleSet {
	return &RuleSet{
		NonessentialDirs: []string{
			"third_party/blink/tools",
			"third_party/blink/web_tests",
			"third_party/hunspell_dictionaries",
			"third_party/hunspell/tests",
			"third_party/jdk/current",
			"third_party/jdk/extras",
			"third_party/liblouis/src/tests/braille-specs",
			"third_party/xdg-utils/tests",
			"v8/test",

			// lite tarball
			"android_webview",
			"build/linux/debian_bullseye_amd64-sysroot",
			"build/linux/debian_bullseye_i386-sysroot",
			"buildtools/reclient",
			"chrome/android",
			"chromecast",
			"ios",
			"native_client",
			"native_client_sdk",
			"third_party/android_platform",
			"third_party/angle/third_party/VK-GL-CTS",
			"third_party/apache-linux",
			"third_party/catapult/third_party/vinn/third_party/v8",
			"third_party/closure_compiler",
			"third_party/instrumented_libs",
			"third_party/llvm",
			"third_party/llvm-build",
			"third_party/llvm-build-tools",
			"third_party/node/linux",
			"third_party/rust-src",
			"third_party/rust-toolchain",
			"third_party/webgl",
		},
		EssentialFiles: []string{
			"chrome/test/data/webui/i18n_process_css_test.html",
			"chrome/test/data/webui/mojo/foobar.mojom",

			// Allows the orchestrator_all target to work with gn gen
			"v8/test/torque/test-torque.tq",
		},
		EssentialGitDirs: []string{
			// The .git subdirs in the Rust checkout need to exist to build rustc.
			"third_party/rust-src/",
		},
		TestDirs: []string{
			"base/tracing/test/data",
			"chrome/test/data",
			"components/test/data",
			// Some files in content/test/data/ are needed to build content_shell.
			// The subdirectories listed below are not needed, and take up most of
			// the space anyway. (https://crbug.com/40213591)
			"content/test/data/accessibility",
			"content/test/data/gpu",
			"content/test/data/media",
			"courgette/testdata",
			"extensions/test/data",
			"media/test/data",
			"native_client/src/trusted/service_runtime/testdata",
			"testing/libfuzzer/fuzzers/wasm_corpus",
			"third_party/blink/perf_tests",
			"third_party/breakpad/breakpad/src/processor/testdata",
			"third_party/catapult/tracing/test_data",
			"third_party/dawn/test",
			"third_party/expat/src/testdata",
			"third_party/harfbuzz-ng/src/test",
			"third_party/llvm/llvm/test",
			"third_party/ots/src/tests/fonts",
			"third_party/rust-src/src/gcc/gcc/testsuite",
			"third_party/rust-src/src/llvm-project/clang/test",
			"third_party/rust-src/src/llvm-project/llvm/test",
			"third_party/screen-ai/linux/resources",
			"third_party/sqlite/src/test",
			"third_party/swiftshader/tests/regres",
			"third_party/test_fonts/test_fonts",
			"tools/perf/testdata",
		},
	}
}
