package backends

import (
	"github.com/gophersatwork/sizediff"
)

// XDelta3 is the VCDIFF delta encoder. Without a source it acts as a plain
// compressor.
func XDelta3() *Tool {
	return NewTool("xdelta3", "xdelta3", "xdelta3",
		WithDelta(func(from, to, out string) []string {
			return []string{"-e", "-9", "-f", "-s", from, to, out}
		}),
		WithStandalone(func(_, to, out string) []string {
			return []string{"-e", "-9", "-f", to, out}
		}),
		WithProbe("", "-V"),
	)
}

// BSDiff is the suffix-sorting binary differ. It has no standalone mode.
func BSDiff() *Tool {
	return NewTool("bsdiff", "bsdiff", "bsdiff",
		WithDelta(func(from, to, out string) []string {
			return []string{from, to, out}
		}),
		WithProbe("usage"),
	)
}

// Zstd is the zstd command line compressor; its delta mode uses the "from"
// file as a patch reference.
func Zstd() *Tool {
	return NewTool("zstd", "zst", "zstd",
		WithDelta(func(from, to, out string) []string {
			return []string{"-19", "-q", "-f", "--patch-from=" + from, to, "-o", out}
		}),
		WithStandalone(func(_, to, out string) []string {
			return []string{"-19", "-q", "-f", to, "-o", out}
		}),
		WithProbe("", "-V"),
	)
}

// XZ is the LZMA2 compressor. It only compresses single files.
func XZ() *Tool {
	return NewTool("xz", "xz", "xz",
		WithStandalone(func(_, to, _ string) []string {
			return []string{"-9", "-c", "-k", to}
		}),
		WithStdout(),
		WithProbe("", "--version"),
	)
}

// Diffoscope renders an HTML report of the structural differences between
// two files. Its size measures how much changed rather than a patch size.
func Diffoscope() *Tool {
	return NewTool("diffoscope", "html", "diffoscope",
		WithDelta(func(from, to, out string) []string {
			return []string{"--html", out, from, to}
		}),
		// exit status 1 means differences were found
		WithSuccessCodes(1),
		WithProbe("", "--version"),
	)
}

// Defaults returns every built-in backend. External tools that are not
// installed are reported unavailable by their probe and skipped.
func Defaults() []sizediff.Backend {
	return []sizediff.Backend{
		XDelta3(),
		BSDiff(),
		Zstd(),
		XZ(),
		Diffoscope(),
		NewZstdGo(),
	}
}

// ByName returns the built-in backend called name.
func ByName(name string) (sizediff.Backend, bool) {
	for _, b := range Defaults() {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}
