package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ateesdalejr/podlistener/internal/services/settings"
	"github.com/ateesdalejr/podlistener/pkg/config"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
	"github.com/ateesdalejr/podlistener/pkg/ffmpeg"
)

// Transcriber turns staged audio files into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// ResolvedConfig is the effective transcription routing after the runtime
// settings overlay is applied on top of the static configuration.
type ResolvedConfig struct {
	Provider string
	Endpoint string
	APIKey   string
	Model    string
}

type audioSplitter interface {
	ValidateBinary() error
	SplitAudio(ctx context.Context, input, outDir string, options ffmpeg.SplitOptions) ([]string, error)
}

// Client posts audio to a whisper-compatible endpoint, splitting oversized
// files into chunks for the external provider.
type Client struct {
	cfg      config.TranscriptionConfig
	settings settings.Service
	splitter audioSplitter
	client   *http.Client
}

// NewClient creates a transcriber client.
func NewClient(cfg config.TranscriptionConfig, settingsSvc settings.Service) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		cfg:      cfg,
		settings: settingsSvc,
		splitter: ffmpeg.New(cfg.FFmpegPath, timeout),
		client:   &http.Client{Timeout: timeout},
	}
}

// Resolve reads the live settings store and computes the effective routing.
func (c *Client) Resolve(ctx context.Context) (ResolvedConfig, error) {
	resolved := ResolvedConfig{
		Provider: normalizeProvider(c.cfg.Provider),
		APIKey:   c.cfg.ExternalAPIKey,
		Model:    c.cfg.Model,
	}

	if c.settings != nil {
		if v, ok, err := c.settings.Get(ctx, settings.KeyTranscriptionProvider); err != nil {
			return resolved, err
		} else if ok {
			resolved.Provider = normalizeProvider(v)
		}
		if v, ok, err := c.settings.Get(ctx, settings.KeyTranscriptionExternalAPIKey); err != nil {
			return resolved, err
		} else if ok {
			resolved.APIKey = v
		}
		if v, ok, err := c.settings.Get(ctx, settings.KeyTranscriptionModel); err != nil {
			return resolved, err
		} else if ok {
			resolved.Model = v
		}
	}

	if resolved.Provider == settings.ProviderLocal {
		resolved.Endpoint = strings.TrimRight(c.cfg.WhisperURL, "/") + "/v1/audio/transcriptions"
		resolved.APIKey = ""
		return resolved, nil
	}

	resolved.Endpoint = strings.TrimRight(c.cfg.ExternalBaseURL, "/") + "/audio/transcriptions"
	if c.settings != nil {
		if v, ok, err := c.settings.Get(ctx, settings.KeyTranscriptionExternalURL); err != nil {
			return resolved, err
		} else if ok {
			resolved.Endpoint = v
		}
	}
	return resolved, nil
}

// "cloud" is the legacy name for the external provider.
func normalizeProvider(provider string) string {
	if provider == "cloud" || provider == settings.ProviderExternal {
		return settings.ProviderExternal
	}
	return settings.ProviderLocal
}

func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resolved, err := c.Resolve(ctx)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", fmt.Errorf("stat audio file: %w", err)
	}

	// Only the external provider caps uploads; the local whisper server
	// streams from disk.
	if resolved.Provider == settings.ProviderExternal &&
		c.cfg.MaxUploadBytes > 0 && info.Size() > c.cfg.MaxUploadBytes {
		return c.transcribeChunked(ctx, resolved, audioPath, info.Size())
	}

	return c.uploadFile(ctx, resolved, audioPath)
}

// transcribeChunked splits the audio into size-bounded chunks, transcribes
// them in order and joins the texts with a newline. The temp dir is removed
// on every exit path.
func (c *Client) transcribeChunked(ctx context.Context, resolved ResolvedConfig, audioPath string, size int64) (string, error) {
	log.Printf("[DEBUG] Audio %s is %d bytes (cap %d), splitting into chunks", audioPath, size, c.cfg.MaxUploadBytes)

	if err := c.splitter.ValidateBinary(); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeMediaTool,
			"ffmpeg is required to chunk oversized audio but is not installed")
	}

	tmpDir, err := os.MkdirTemp("", "podlistener-chunks-")
	if err != nil {
		return "", fmt.Errorf("creating chunk dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	chunks, err := c.splitter.SplitAudio(ctx, audioPath, tmpDir, ffmpeg.SplitOptions{
		ChunkSeconds: c.cfg.ChunkSeconds,
		BitrateKbps:  c.cfg.ChunkBitrateKbps,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeMediaTool, "splitting audio for chunked upload")
	}

	// A chunk over the cap means the bitrate/duration settings cannot fit the
	// provider's limit; retrying would produce the same chunks.
	for _, chunk := range chunks {
		chunkInfo, err := os.Stat(chunk)
		if err != nil {
			return "", fmt.Errorf("stat chunk: %w", err)
		}
		if chunkInfo.Size() > c.cfg.MaxUploadBytes {
			return "", apperrors.Newf(apperrors.ErrCodeUploadTooLarge,
				"chunk %s is %d bytes, still over the %d byte cap; lower chunk_seconds or chunk_bitrate_kbps",
				filepath.Base(chunk), chunkInfo.Size(), c.cfg.MaxUploadBytes)
		}
	}

	texts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		text, err := c.uploadFile(ctx, resolved, chunk)
		if err != nil {
			return "", fmt.Errorf("transcribing chunk %d/%d: %w", i+1, len(chunks), err)
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n"), nil
}

func (c *Client) uploadFile(ctx context.Context, resolved ResolvedConfig, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("reading audio file: %w", err)
	}
	if err := writer.WriteField("model", resolved.Model); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resolved.Endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if resolved.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+resolved.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("reading transcription response: %w", err)
	}

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		info, statErr := os.Stat(path)
		size := int64(-1)
		if statErr == nil {
			size = info.Size()
		}
		return "", apperrors.Newf(apperrors.ErrCodeUploadTooLarge,
			"upload of %d bytes rejected by provider (configured cap %d)", size, c.cfg.MaxUploadBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.NewStatusError(resp, string(body))
	}

	return strings.TrimSpace(string(body)), nil
}
