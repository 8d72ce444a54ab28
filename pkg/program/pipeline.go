package program

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/naelab/papercast/pkg/completion"
	"github.com/naelab/papercast/pkg/pool"
	"github.com/naelab/papercast/pkg/structured"
	"github.com/naelab/papercast/pkg/tts"
)

// Per-stage sampling temperatures. The script writer runs on the provider
// default.
const (
	outlineTemperature    = 0.1
	extractionTemperature = 0
)

// ErrEmptyScript is the per-section validation failure: the writer answered
// but produced no turns.
var ErrEmptyScript = errors.New("program: section script is empty")

// Session is the slice of completion.Session the pipeline drives. Every
// session the pipeline creates is initialized, run, and torn down within
// the stage that owns it.
type Session interface {
	Init(ctx context.Context) error
	Run(ctx context.Context, messages []completion.Exchange) ([]completion.Exchange, error)
	Latest(offset int) (completion.Exchange, error)
	Deinit(ctx context.Context)
}

// SessionFactory creates a session for one stage. The production factory
// wraps completion.NewSession over an OpenAIProvider.
type SessionFactory func(cfg completion.Config) Session

// Pipeline drives the staged generation graph: outline, then metadata
// extraction in parallel, then the script section by section.
type Pipeline struct {
	opts       Options
	newSession SessionFactory
	fixer      structured.Fixer
	runID      string
}

// New validates the options and builds a pipeline. The fixer is optional;
// without it structured-output recovery stops after syntactic repair.
func New(opts Options, factory SessionFactory, fixer structured.Fixer) (*Pipeline, error) {
	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		opts:       opts,
		newSession: factory,
		fixer:      fixer,
		runID:      uuid.NewString(),
	}, nil
}

// RunID identifies this pipeline run in session names and logs.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Result is a finished pipeline run: the plan, what was learned about the
// documents, and the full script in playback order.
type Result struct {
	Outline  Outline
	Metadata Metadata
	Chunks   []Chunk
	Script   []Turn
}

// Run executes all stages. Extraction failures degrade to documented
// fallback values; outline or script failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	outline, err := p.writeOutline(ctx)
	if err != nil {
		return nil, fmt.Errorf("program: outline stage: %w", err)
	}
	slog.Info("program: outline planned", "run", p.runID, "sections", len(outline.Sections), "turns", outline.TotalTurns)

	meta := p.extractMetadata(ctx)
	slog.Info("program: metadata extracted", "run", p.runID,
		"author", meta.Author, "title", meta.Title, "guest_voice", meta.GuestVoice)

	chunks, err := p.writeScript(ctx, outline, meta)
	if err != nil {
		return nil, fmt.Errorf("program: script stage: %w", err)
	}

	res := &Result{Outline: outline, Metadata: meta, Chunks: chunks}
	for _, c := range chunks {
		res.Script = append(res.Script, c.Turns...)
	}
	slog.Info("program: script complete", "run", p.runID, "turns", len(res.Script))
	return res, nil
}

func (p *Pipeline) sessionConfig(stage, instructions string, temperature float32) completion.Config {
	return completion.Config{
		Name:         stage + "-" + p.runID,
		Documents:    p.opts.Documents,
		Instructions: instructions,
		Model:        p.opts.Model,
		Temperature:  temperature,
		Retry:        p.opts.RetryPolicy(),
	}
}

func (p *Pipeline) decodeLatest(ctx context.Context, s Session, v any) error {
	msg, err := s.Latest(0)
	if err != nil {
		return err
	}
	raw, err := structured.Decoder[json.RawMessage]{Fixer: p.fixer}.Decode(ctx, msg.Text)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (p *Pipeline) writeOutline(ctx context.Context) (Outline, error) {
	s := p.newSession(p.sessionConfig("program-writer", OutlinePrompt(p.opts.Language), outlineTemperature))
	defer s.Deinit(ctx)
	if err := s.Init(ctx); err != nil {
		return Outline{}, err
	}

	turns := TurnsForDuration(p.opts.Minutes)
	request := fmt.Sprintf(
		"%d turns.\nPlease make sections to structure the program in %d turns. A turn is one utterance by one participant.",
		turns, turns)
	if _, err := s.Run(ctx, []completion.Exchange{{Role: completion.RoleUser, Text: request}}); err != nil {
		return Outline{}, err
	}

	var outline Outline
	if err := p.decodeLatest(ctx, s, &outline); err != nil {
		return Outline{}, err
	}
	if len(outline.Sections) == 0 {
		return Outline{}, errors.New("planner returned no sections")
	}
	return outline, nil
}

// extractTask is one metadata slot: its extraction request and how a
// successful answer lands in the Metadata.
type extractTask struct {
	name   string
	prompt string
	apply  func(m *Metadata, value string)
}

func guestVoiceTask() extractTask {
	candidates := tts.GuestVoices()
	list, _ := json.Marshal(candidates)
	return extractTask{
		name: "guest-voice",
		prompt: fmt.Sprintf(
			"Choose the voice model for the documents' author appearing on the program by interpreting the documents, and output the model name as JSON. List of voice models: %s",
			list),
		apply: func(m *Metadata, value string) {
			v := tts.Voice(value)
			for _, c := range candidates {
				if v == c {
					m.GuestVoice = v
					return
				}
			}
			slog.Warn("program: invalid guest voice, keeping default", "got", value)
		},
	}
}

// extractMetadata runs the independent extraction tasks under the assistant
// concurrency limit. Each task owns a short-lived session. A failed slot
// keeps its fallback value and never aborts the siblings.
func (p *Pipeline) extractMetadata(ctx context.Context) Metadata {
	meta := Metadata{
		Author:     UnknownAuthor,
		Title:      UnknownTitle,
		GuestVoice: tts.DefaultGuestVoice,
	}
	tasks := []extractTask{
		{
			name:   "author",
			prompt: "Output the first author of the documents as JSON.",
			apply:  func(m *Metadata, value string) { m.Author = value },
		},
		{
			name:   "title",
			prompt: "Output the title of the documents as JSON.",
			apply:  func(m *Metadata, value string) { m.Title = value },
		},
		guestVoiceTask(),
	}

	results := pool.Map(ctx, p.opts.AssistantConcurrency, tasks,
		func(ctx context.Context, i int, task extractTask) (string, error) {
			return p.runExtraction(ctx, i, task)
		})
	for i, r := range results {
		if r.Failed() {
			slog.Warn("program: extraction task failed, using fallback", "task", tasks[i].name, "err", r.Err)
			continue
		}
		tasks[i].apply(&meta, r.Value)
	}
	return meta
}

func (p *Pipeline) runExtraction(ctx context.Context, i int, task extractTask) (string, error) {
	name := fmt.Sprintf("info-extractor-%d", i)
	s := p.newSession(p.sessionConfig(name, ExtractorPrompt(), extractionTemperature))
	defer s.Deinit(ctx)
	if err := s.Init(ctx); err != nil {
		return "", err
	}
	if _, err := s.Run(ctx, []completion.Exchange{{Role: completion.RoleUser, Text: task.prompt}}); err != nil {
		return "", err
	}
	var out extraction
	if err := p.decodeLatest(ctx, s, &out); err != nil {
		return "", err
	}
	if out.Result == "" {
		return "", fmt.Errorf("empty extraction result for %s", task.name)
	}
	return out.Result, nil
}

// writeScript generates each section's chunk strictly in outline order on
// one long-lived session: the rolling context carries narrative continuity
// forward and each request includes the next section as lookahead, so this
// stage must not be parallelized.
func (p *Pipeline) writeScript(ctx context.Context, outline Outline, meta Metadata) ([]Chunk, error) {
	prompt := ScriptPrompt(p.opts.Language, tts.DefaultHostVoice, meta.GuestVoice)
	s := p.newSession(p.sessionConfig("script-writer", prompt, 0))
	defer s.Deinit(ctx)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(outline.Sections))
	for i, section := range outline.Sections {
		input := scriptInput{Author: meta.Author, CurrentSection: section}
		if i+1 < len(outline.Sections) {
			input.NextSection = &outline.Sections[i+1]
		}
		request, err := json.Marshal(input)
		if err != nil {
			return nil, err
		}

		turns, err := p.writeSection(ctx, s, string(request))
		if err != nil {
			return nil, fmt.Errorf("section %d %q: %w", i, section.Title, err)
		}
		chunks[i] = Chunk{Section: section.Title, Turns: turns}
		slog.Debug("program: section written", "run", p.runID, "section", section.Title, "turns", len(turns))
	}
	return chunks, nil
}

// writeSection retries a section up to the retry budget on validation
// failure (unparseable or empty script). Transport failures abort
// immediately: the session already retried those under its own policy.
// Retries re-run against the same session so context continuity survives
// the failed attempt.
func (p *Pipeline) writeSection(ctx context.Context, s Session, request string) ([]Turn, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.RetryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.Run(ctx, []completion.Exchange{{Role: completion.RoleUser, Text: request}}); err != nil {
			return nil, err
		}
		var out scriptOutput
		if err := p.decodeLatest(ctx, s, &out); err != nil {
			lastErr = err
			continue
		}
		if len(out.Script) == 0 {
			lastErr = ErrEmptyScript
			continue
		}
		return out.Script, nil
	}
	return nil, lastErr
}

// WriteTranscript writes the per-section script as pretty-printed JSON, the
// artifact published alongside the audio.
func (r *Result) WriteTranscript(path string) error {
	b, err := json.MarshalIndent(r.Chunks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
