package encoding

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"resound/internal/services"
)

var commandContext = exec.CommandContext

// ProgressUpdate captures encoder progress events.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Client defines encoder behaviour. Implementations convert one source file to
// the requested output path and report progress along the way.
type Client interface {
	Encode(ctx context.Context, inputPath, outputPath string, progress func(ProgressUpdate)) error
}

// Option configures the ffmpeg client.
type Option func(*FFmpeg)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(c *FFmpeg) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithProbeBinary overrides the default ffprobe binary name.
func WithProbeBinary(binary string) Option {
	return func(c *FFmpeg) {
		if binary != "" {
			c.probeBinary = binary
		}
	}
}

// FFmpeg wraps the ffmpeg command-line encoder.
type FFmpeg struct {
	binary      string
	probeBinary string
	format      string
	bitrateKbps int
}

// NewFFmpeg constructs an ffmpeg client for the given target format.
func NewFFmpeg(format string, bitrateKbps int, opts ...Option) *FFmpeg {
	client := &FFmpeg{
		binary:      "ffmpeg",
		probeBinary: "ffprobe",
		format:      strings.ToLower(strings.TrimSpace(format)),
		bitrateKbps: bitrateKbps,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Encode converts inputPath to outputPath, reporting coarse progress derived
// from ffmpeg's machine-readable progress stream against the probed duration.
func (c *FFmpeg) Encode(ctx context.Context, inputPath, outputPath string, progress func(ProgressUpdate)) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}

	codec, err := codecArgs(c.format, c.bitrateKbps)
	if err != nil {
		return err
	}

	duration, err := c.probeDuration(ctx, inputPath)
	if err != nil {
		// Progress becomes indeterminate but the conversion can still run.
		duration = 0
	}

	args := []string{"-y", "-hide_banner", "-nostats", "-i", inputPath}
	args = append(args, codec...)
	args = append(args, "-progress", "pipe:1", outputPath)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "encoder", "start ffmpeg", "", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		update, ok := parseProgressLine(scanner.Text(), duration)
		if !ok {
			continue
		}
		if progress != nil {
			progress(update)
		}
	}

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(tailLines(stderr.String(), 5))
		return services.Wrap(services.ErrExternalTool, "encoder", "encode", detail, err)
	}
	if progress != nil {
		progress(ProgressUpdate{Percent: 100, Message: "Encode complete"})
	}
	return nil
}

func (c *FFmpeg) probeDuration(ctx context.Context, inputPath string) (float64, error) {
	cmd := commandContext(
		ctx,
		c.probeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return value, nil
}

func codecArgs(format string, bitrateKbps int) ([]string, error) {
	bitrate := fmt.Sprintf("%dk", bitrateKbps)
	switch format {
	case "opus":
		return []string{"-vn", "-c:a", "libopus", "-b:a", bitrate}, nil
	case "flac":
		return []string{"-vn", "-c:a", "flac"}, nil
	case "mp3":
		return []string{"-vn", "-c:a", "libmp3lame", "-b:a", bitrate}, nil
	case "m4a":
		return []string{"-vn", "-c:a", "aac", "-b:a", bitrate}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "encoder", "select codec", fmt.Sprintf("unsupported target format %q", format), nil)
	}
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
