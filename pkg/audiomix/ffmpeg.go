package audiomix

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// PrimaryGain boosts the dialogue track above the background music in the
// mix filter.
const PrimaryGain = 1.9

// Processor is the audio operation set the assembler needs from the
// external audio tool.
type Processor interface {
	// Concat joins the inputs into one track, in argument order.
	Concat(ctx context.Context, inputs []string, output string) error

	// Duration probes a file's playback duration.
	Duration(ctx context.Context, path string) (time.Duration, error)

	// LoopTrim loops the input until it covers at least d, trimmed to d.
	LoopTrim(ctx context.Context, input string, d time.Duration, output string) error

	// Mix lays secondary under primary at the given volume. The output
	// duration is pinned to the primary track.
	Mix(ctx context.Context, primary, secondary string, secondaryVolume float64, output string) error

	// Transcode converts input to the format implied by output's extension.
	Transcode(ctx context.Context, input, output string) error
}

var _ Processor = (*FFmpeg)(nil)

// FFmpeg implements Processor by shelling out to ffmpeg and ffprobe.
type FFmpeg struct {
	// Binary and ProbeBinary default to "ffmpeg" and "ffprobe".
	Binary      string
	ProbeBinary string
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

func (f *FFmpeg) probeBinary() string {
	if f.ProbeBinary == "" {
		return "ffprobe"
	}
	return f.ProbeBinary
}

func (f *FFmpeg) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := commandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("audiomix: %s: %w: %s", name, err, tail(out))
	}
	return out, nil
}

// tail keeps the last lines of tool output, where ffmpeg puts the actual
// error.
func tail(out []byte) string {
	const max = 512
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}

func (f *FFmpeg) Concat(ctx context.Context, inputs []string, output string) error {
	args := make([]string, 0, 2*len(inputs)+5)
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", fmt.Sprintf("concat=n=%d:v=0:a=1", len(inputs)),
		"-y", output)
	_, err := f.run(ctx, f.binary(), args...)
	return err
}

func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := f.run(ctx, f.probeBinary(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("audiomix: parse duration of %s: %w", path, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func (f *FFmpeg) LoopTrim(ctx context.Context, input string, d time.Duration, output string) error {
	_, err := f.run(ctx, f.binary(),
		"-stream_loop", "-1",
		"-t", fmt.Sprintf("%.3f", d.Seconds()),
		"-i", input,
		"-y", output)
	return err
}

func (f *FFmpeg) Mix(ctx context.Context, primary, secondary string, secondaryVolume float64, output string) error {
	filter := fmt.Sprintf(
		"[0:a]volume=%g[a0];[1:a]volume=%g[a1];[a0][a1]amix=inputs=2:duration=first",
		PrimaryGain, secondaryVolume)
	_, err := f.run(ctx, f.binary(),
		"-i", primary,
		"-i", secondary,
		"-filter_complex", filter,
		"-y", output)
	return err
}

func (f *FFmpeg) Transcode(ctx context.Context, input, output string) error {
	_, err := f.run(ctx, f.binary(), "-i", input, "-y", output)
	return err
}
