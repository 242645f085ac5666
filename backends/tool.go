// Package backends provides the delta and compression backends a
// sizediff.Differ can drive: thin wrappers around external tools, and an
// in-process zstd encoder.
package backends

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/gophersatwork/sizediff"
)

// ArgsFunc builds the command line that writes an artifact to out. from is
// empty in standalone mode.
type ArgsFunc func(from, to, out string) []string

// Tool is a backend implemented by an external program.
type Tool struct {
	name   string
	ext    string
	runner *Runner
	fs     afero.Fs

	delta      ArgsFunc
	standalone ArgsFunc

	probeArgs  []string
	probeMatch string

	// stdout is true when the program writes its artifact to standard output.
	stdout      bool
	okExitCodes []int
}

// ToolOption configures a Tool.
type ToolOption func(*Tool)

// WithDelta enables delta mode with the given command line.
func WithDelta(args ArgsFunc) ToolOption {
	return func(t *Tool) {
		t.delta = args
	}
}

// WithStandalone enables standalone mode with the given command line.
func WithStandalone(args ArgsFunc) ToolOption {
	return func(t *Tool) {
		t.standalone = args
	}
}

// WithProbe sets the no-op invocation used to detect the tool. When match
// is set the probe succeeds if the combined output contains it, whatever
// the exit code; otherwise the probe must exit zero.
func WithProbe(match string, args ...string) ToolOption {
	return func(t *Tool) {
		t.probeArgs = args
		t.probeMatch = match
	}
}

// WithStdout marks tools that write the artifact to standard output.
func WithStdout() ToolOption {
	return func(t *Tool) {
		t.stdout = true
	}
}

// WithToolFs sets the filesystem standard output artifacts are written to.
func WithToolFs(fs afero.Fs) ToolOption {
	return func(t *Tool) {
		t.fs = fs
	}
}

// WithSuccessCodes accepts non-zero exit codes as success.
func WithSuccessCodes(codes ...int) ToolOption {
	return func(t *Tool) {
		t.okExitCodes = append(t.okExitCodes, codes...)
	}
}

// NewTool creates a backend named name running program. ext names its
// cache artifacts.
func NewTool(name, ext, program string, opts ...ToolOption) *Tool {
	t := &Tool{
		name:   name,
		ext:    ext,
		runner: NewRunner(program),
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements sizediff.Backend.
func (t *Tool) Name() string {
	return t.name
}

// Extension implements sizediff.Backend.
func (t *Tool) Extension() string {
	return t.ext
}

// Modes implements sizediff.Backend.
func (t *Tool) Modes() sizediff.Mode {
	var m sizediff.Mode
	if t.delta != nil {
		m |= sizediff.ModeDelta
	}
	if t.standalone != nil {
		m |= sizediff.ModeStandalone
	}
	return m
}

// Available implements sizediff.Backend.
func (t *Tool) Available(ctx context.Context) bool {
	result, err := t.runner.Run(ctx, t.probeArgs)
	if t.probeMatch == "" {
		return err == nil
	}
	if result == nil || result.ExitCode < 0 {
		return false
	}
	out := strings.ToLower(result.Stdout + result.Stderr)
	return strings.Contains(out, strings.ToLower(t.probeMatch))
}

// Run implements sizediff.Backend.
func (t *Tool) Run(ctx context.Context, from, to, out string) error {
	args := t.standalone
	if from != "" {
		args = t.delta
	}
	if args == nil {
		return fmt.Errorf("%s: unsupported mode", t.name)
	}

	opts := []Option{WithOKExitCodes(t.okExitCodes...)}
	if !t.stdout {
		_, err := t.runner.Run(ctx, args(from, to, out), opts...)
		return err
	}

	f, err := t.fs.Create(out)
	if err != nil {
		return err
	}
	_, err = t.runner.Run(ctx, args(from, to, out), append(opts, WithStdoutWriter(f))...)
	// a failed close may leave a truncated artifact
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%s: close %s: %w", t.name, out, cerr)
	}
	return err
}

var _ sizediff.Backend = (*Tool)(nil)
