package backends

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/gophersatwork/sizediff"
)

// patchDictID is the dictionary id zstd --patch-from frames carry: none.
// Decoders resolve a missing id to the dictionary registered under zero.
const patchDictID = 0

// ZstdGo compresses in process with the pure Go zstd encoder. In delta mode
// the "from" file is loaded as a raw dictionary, which is what zstd
// --patch-from does, so it needs no external tool and is always available.
type ZstdGo struct {
	fs    afero.Fs
	level zstd.EncoderLevel
}

// ZstdGoOption configures a ZstdGo backend.
type ZstdGoOption func(*ZstdGo)

// WithZstdFs sets the filesystem inputs are read from and artifacts
// written to. It must be the filesystem the Differ uses.
func WithZstdFs(fs afero.Fs) ZstdGoOption {
	return func(z *ZstdGo) {
		z.fs = fs
	}
}

// WithZstdLevel sets the encoder level.
func WithZstdLevel(level zstd.EncoderLevel) ZstdGoOption {
	return func(z *ZstdGo) {
		z.level = level
	}
}

// NewZstdGo creates the in-process zstd backend.
func NewZstdGo(opts ...ZstdGoOption) *ZstdGo {
	z := &ZstdGo{
		fs:    afero.NewOsFs(),
		level: zstd.SpeedBestCompression,
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Name implements sizediff.Backend.
func (z *ZstdGo) Name() string {
	return "zstd-go"
}

// Extension implements sizediff.Backend.
func (z *ZstdGo) Extension() string {
	return "gozst"
}

// Modes implements sizediff.Backend.
func (z *ZstdGo) Modes() sizediff.Mode {
	return sizediff.ModeDelta | sizediff.ModeStandalone
}

// Available implements sizediff.Backend.
func (z *ZstdGo) Available(context.Context) bool {
	return true
}

// Run implements sizediff.Backend.
func (z *ZstdGo) Run(ctx context.Context, from, to, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	options := []zstd.EOption{
		zstd.WithEncoderLevel(z.level),
		zstd.WithEncoderConcurrency(1),
	}
	if from != "" {
		dict, err := afero.ReadFile(z.fs, from)
		if err != nil {
			return fmt.Errorf("failed to read reference: %w", err)
		}
		// an empty reference contributes no history
		if len(dict) > 0 {
			options = append(options, zstd.WithEncoderDictRaw(patchDictID, dict))
		}
	}

	src, err := z.fs.Open(to)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer src.Close()

	dst, err := z.fs.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst, options...)
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish frame: %w", err)
	}
	return dst.Close()
}

var _ sizediff.Backend = (*ZstdGo)(nil)
