package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"time"
)

// Minimums below which segmenting produces chunks too small to be useful.
const (
	MinChunkSeconds     = 60
	MinChunkBitrateKbps = 16
)

// SplitOptions controls how audio is re-encoded and segmented for chunked
// uploads.
type SplitOptions struct {
	ChunkSeconds int // duration of each chunk, floored at MinChunkSeconds
	BitrateKbps  int // target bitrate, floored at MinChunkBitrateKbps
}

// FFmpeg wraps the ffmpeg binary.
type FFmpeg struct {
	ffmpegPath string
	timeout    time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath string, timeout time.Duration) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
	}
}

// ValidateBinary checks that ffmpeg is available.
func (f *FFmpeg) ValidateBinary() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}
	return nil
}

// SplitAudio re-encodes input to mono 16 kHz mp3 at the configured bitrate and
// segments it into sequential chunks in outDir. Returns the chunk paths in
// playback order.
func (f *FFmpeg) SplitAudio(ctx context.Context, input, outDir string, options SplitOptions) ([]string, error) {
	if err := f.ValidateBinary(); err != nil {
		return nil, err
	}

	chunkSeconds := options.ChunkSeconds
	if chunkSeconds < MinChunkSeconds {
		chunkSeconds = MinChunkSeconds
	}
	bitrate := options.BitrateKbps
	if bitrate < MinChunkBitrateKbps {
		bitrate = MinChunkBitrateKbps
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	pattern := filepath.Join(outDir, "chunk_%03d.mp3")
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", input,
		"-ac", "1", // mono
		"-ar", "16000", // 16 kHz
		"-b:a", fmt.Sprintf("%dk", bitrate),
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", chunkSeconds),
		"-y",
		pattern,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrSplitFailed, err, stderr.String())
	}

	chunks, err := filepath.Glob(filepath.Join(outDir, "chunk_*.mp3"))
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", ErrSplitFailed)
	}
	sort.Strings(chunks)
	return chunks, nil
}
