package ffmpeg

import "errors"

var (
	// ErrFFmpegNotFound means the transcoder binary is not installed or not on
	// PATH; chunked uploads cannot proceed without it.
	ErrFFmpegNotFound = errors.New("ffmpeg binary not found")

	// ErrSplitFailed means the transcoder exited non-zero while segmenting.
	ErrSplitFailed = errors.New("ffmpeg split failed")
)
