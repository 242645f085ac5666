package backends

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"
)

// Result holds the outcome of one command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Options configures a single command execution.
type Options struct {
	// StdoutWriter receives stdout instead of the captured buffer, for tools
	// that write their artifact to standard output.
	StdoutWriter io.Writer

	// OKExitCodes lists non-zero exit codes that do not mean failure.
	OKExitCodes []int
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithStdoutWriter sends stdout to w.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StdoutWriter = w
	}
}

// WithOKExitCodes accepts the given exit codes as success.
func WithOKExitCodes(codes ...int) Option {
	return func(o *Options) {
		o.OKExitCodes = append(o.OKExitCodes, codes...)
	}
}

// Runner executes one external program.
type Runner struct {
	program string
}

// NewRunner creates a runner for program, looked up in PATH at run time.
func NewRunner(program string) *Runner {
	return &Runner{program: program}
}

// Program returns the wrapped program name.
func (r *Runner) Program() string {
	return r.program
}

// Run executes the program with args. The returned Result is populated even
// when the command fails, so callers can inspect stderr.
func (r *Runner) Run(ctx context.Context, args []string, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, r.program, args...)
	cmd.Stdout = &stdoutBuf
	if options.StdoutWriter != nil {
		cmd.Stdout = options.StdoutWriter
	}
	cmd.Stderr = &stderrBuf

	err := cmd.Run()

	result := &Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		if slices.Contains(options.OKExitCodes, result.ExitCode) {
			err = nil
		}
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("%s %s: %w%s", r.program, strings.Join(args, " "), err, stderrSuffix(result.Stderr))
	}
	return result, nil
}

// stderrSuffix formats the last line of stderr for an error message.
func stderrSuffix(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	if i := strings.LastIndexByte(stderr, '\n'); i >= 0 {
		stderr = stderr[i+1:]
	}
	return ": " + stderr
}
