// Package audiomix turns a finished dialogue script into one distribution
// audio file: parallel speech synthesis, ordered concatenation, optional
// background-music mixing, and a final transcode.
package audiomix

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/naelab/papercast/pkg/pool"
	"github.com/naelab/papercast/pkg/program"
	"github.com/naelab/papercast/pkg/retry"
	"github.com/naelab/papercast/pkg/tts"
)

// SegmentName names one synthesized segment. The zero-padded index makes
// lexical filename order equal playback order, which is how Assemble
// recovers ordering after concurrent synthesis.
func SegmentName(index int) string {
	return fmt.Sprintf("speech_%04d.wav", index)
}

// FinishedProgram is the assembled distribution artifact.
type FinishedProgram struct {
	// Path is the transcoded distribution file.
	Path string

	// WAVPath is the mixed master the distribution file was derived from.
	WAVPath string

	// Name is the distribution file's base name.
	Name string
}

// Assembler synthesizes and assembles one program. WorkDir holds
// intermediate segments, DistDir the finished artifacts.
type Assembler struct {
	Synth tts.Synthesizer
	Proc  Processor

	WorkDir string
	DistDir string

	// Concurrency bounds in-flight synthesis calls.
	Concurrency int

	// Retry wraps each synthesis call.
	Retry retry.Policy

	// BGM is an optional background track path, mixed in at BGMVolume.
	BGM       string
	BGMVolume float64
}

// SynthesizeAll synthesizes every turn under the concurrency bound and
// writes each segment under WorkDir. The batch fails fast on the first
// error: a missing segment cannot be defaulted, it would corrupt playback
// order.
func (a *Assembler) SynthesizeAll(ctx context.Context, turns []program.Turn) ([]string, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("audiomix: no turns to synthesize")
	}
	if err := os.MkdirAll(a.WorkDir, 0o755); err != nil {
		return nil, err
	}

	results, err := pool.MapFailFast(ctx, a.Concurrency, turns,
		func(ctx context.Context, i int, turn program.Turn) (string, error) {
			data, err := retry.DoValue(ctx, a.Retry, "synthesize speech", func(ctx context.Context) ([]byte, error) {
				return a.Synth.Synthesize(ctx, turn.Text, turn.Voice)
			})
			if err != nil {
				return "", err
			}
			path := filepath.Join(a.WorkDir, SegmentName(i))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return "", err
			}
			slog.Debug("audiomix: segment synthesized", "index", i, "voice", turn.Voice)
			return path, nil
		})
	if err != nil {
		return nil, fmt.Errorf("audiomix: synthesize batch: %w", err)
	}

	segments := make([]string, len(results))
	for i, r := range results {
		segments[i] = r.Value
	}
	return segments, nil
}

// Assemble builds the finished program from synthesized segments: lexical
// sort, concatenation, optional background-music loop and mix, and the
// final transcode into DistDir.
func (a *Assembler) Assemble(ctx context.Context, segments []string, baseName string) (*FinishedProgram, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("audiomix: no segments to assemble")
	}
	if baseName == "" {
		baseName = "output"
	}
	if err := os.MkdirAll(a.DistDir, 0o755); err != nil {
		return nil, err
	}

	// Zero-padded names make this sort recover playback order.
	sorted := append([]string(nil), segments...)
	sort.Strings(sorted)

	concat := filepath.Join(a.WorkDir, "concat.wav")
	if err := a.Proc.Concat(ctx, sorted, concat); err != nil {
		return nil, err
	}

	master := concat
	if a.BGM != "" {
		mixed, err := a.mixBackground(ctx, concat)
		if err != nil {
			return nil, err
		}
		master = mixed
	}

	wavPath := filepath.Join(a.DistDir, baseName+".wav")
	if err := copyFile(master, wavPath); err != nil {
		return nil, err
	}

	outPath := filepath.Join(a.DistDir, baseName+".mp3")
	if err := a.Proc.Transcode(ctx, wavPath, outPath); err != nil {
		return nil, err
	}
	slog.Info("audiomix: program assembled", "path", outPath, "segments", len(sorted))
	return &FinishedProgram{
		Path:    outPath,
		WAVPath: wavPath,
		Name:    baseName + ".mp3",
	}, nil
}

// mixBackground loops the background track to the dialogue's duration and
// lays it underneath.
func (a *Assembler) mixBackground(ctx context.Context, primary string) (string, error) {
	d, err := a.Proc.Duration(ctx, primary)
	if err != nil {
		return "", err
	}
	looped := filepath.Join(a.WorkDir, "bgm_extended.wav")
	if err := a.Proc.LoopTrim(ctx, a.BGM, d, looped); err != nil {
		return "", err
	}
	mixed := filepath.Join(a.WorkDir, "with_bgm.wav")
	if err := a.Proc.Mix(ctx, primary, looped, a.BGMVolume, mixed); err != nil {
		return "", err
	}
	return mixed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
