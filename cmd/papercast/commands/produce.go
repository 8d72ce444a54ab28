package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/naelab/papercast/pkg/audiomix"
	"github.com/naelab/papercast/pkg/cli"
	"github.com/naelab/papercast/pkg/completion"
	"github.com/naelab/papercast/pkg/program"
	"github.com/naelab/papercast/pkg/structured"
	"github.com/naelab/papercast/pkg/tts"
)

// defaultFixerModel repairs broken JSON when GEMINI_API_KEY is set.
const defaultFixerModel = "gemini-2.0-flash"

// recorder produces one episode end to end: generation pipeline, speech
// synthesis, and audio assembly.
type recorder struct {
	opts    program.Options
	workDir string
	distDir string

	// bgm is a local background track path, already downloaded if the
	// episode came from a remote store.
	bgm string
}

// produced is the finished episode on local disk.
type produced struct {
	Audio      *audiomix.FinishedProgram
	Transcript string
	Result     *program.Result
}

func newFixer(ctx context.Context, client *openai.Client, model string) (structured.Fixer, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return &structured.ChatFixer{Completer: &completion.GeminiCompleter{
			Client: gc,
			Model:  defaultFixerModel,
		}}, nil
	}
	return &structured.ChatFixer{Completer: &completion.OpenAICompleter{
		Client: client,
		Model:  model,
	}}, nil
}

func (r *recorder) produce(ctx context.Context) (*produced, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	client := openai.NewClient()
	provider := &completion.OpenAIProvider{Client: &client}

	r.opts.Normalize()
	fixer, err := newFixer(ctx, &client, r.opts.Model)
	if err != nil {
		return nil, err
	}

	pipe, err := program.New(r.opts, func(cfg completion.Config) program.Session {
		return completion.NewSession(provider, cfg)
	}, fixer)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	slog.Info("recording started", "run", pipe.RunID(), "documents", len(r.opts.Documents), "minutes", r.opts.Minutes)
	res, err := pipe.Run(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("script written", "title", res.Metadata.Title, "turns", len(res.Script))

	mux := tts.NewMux()
	if err := mux.Handle("#", &tts.OpenAI{Client: &client, Model: r.opts.SpeechModel}); err != nil {
		return nil, err
	}
	policy := r.opts.RetryPolicy()
	policy.Retryable = tts.Retryable

	asm := &audiomix.Assembler{
		Synth:       mux,
		Proc:        &audiomix.FFmpeg{},
		WorkDir:     r.workDir,
		DistDir:     r.distDir,
		Concurrency: r.opts.TTSConcurrency,
		Retry:       policy,
		BGM:         r.bgm,
		BGMVolume:   r.opts.BGMVolume,
	}
	segments, err := asm.SynthesizeAll(ctx, res.Script)
	if err != nil {
		return nil, err
	}

	name := program.DistributionName(res.Metadata.Title, time.Now())
	audio, err := asm.Assemble(ctx, segments, name)
	if err != nil {
		return nil, err
	}

	transcript := filepath.Join(r.distDir, name+".json")
	if err := res.WriteTranscript(transcript); err != nil {
		return nil, err
	}

	slog.Info("recording finished", "audio", audio.Path, "elapsed", cli.FormatDuration(time.Since(start)))
	return &produced{Audio: audio, Transcript: transcript, Result: res}, nil
}
