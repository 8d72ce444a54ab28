package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/naelab/papercast/pkg/pool"
	"github.com/naelab/papercast/pkg/retry"
	"github.com/naelab/papercast/pkg/structured"
)

const (
	// DefaultContextWindow bounds the rolling context resent per run.
	DefaultContextWindow = 30

	// DefaultMaxContinuations bounds the incomplete-response repeat loop.
	DefaultMaxContinuations = 30

	// DefaultPollInterval is the knowledge-index build poll interval.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultIndexTimeout bounds the knowledge-index build wait.
	DefaultIndexTimeout = 5 * time.Minute
)

// Config configures one session.
type Config struct {
	// Name is the session's logical name, used for the remote resource
	// name and in log lines.
	Name string

	// Documents are local paths of the reference documents to upload.
	Documents []string

	// Instructions is the session's standing system instruction.
	Instructions string

	// Model selects the generation model.
	Model string

	// Temperature and TopP are optional sampling parameters; zero means
	// provider default.
	Temperature float32
	TopP        float32

	// Retry governs transport retries for the calls that establish remote
	// resources and streams. It does not govern stream consumption.
	Retry retry.Policy

	// MaxContinuations bounds how often an incomplete response is resumed
	// on the same thread. Defaults to DefaultMaxContinuations.
	MaxContinuations int

	// ContextWindow bounds the rolling context. Defaults to
	// DefaultContextWindow.
	ContextWindow int

	// PollInterval and IndexTimeout bound the index build wait. Defaults:
	// DefaultPollInterval, DefaultIndexTimeout.
	PollInterval time.Duration
	IndexTimeout time.Duration
}

func (c *Config) contextWindow() int {
	if c.ContextWindow < 1 {
		return DefaultContextWindow
	}
	return c.ContextWindow
}

func (c *Config) maxContinuations() int {
	if c.MaxContinuations < 1 {
		return DefaultMaxContinuations
	}
	return c.MaxContinuations
}

func (c *Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}

func (c *Config) indexTimeout() time.Duration {
	if c.IndexTimeout <= 0 {
		return DefaultIndexTimeout
	}
	return c.IndexTimeout
}

// Session owns one remote assistant instance: its uploaded documents, its
// knowledge index, its session resource, and the rolling conversation
// context. A session is not safe for concurrent use; callers must serialize
// Run calls, which share the mutable context.
type Session struct {
	cfg      Config
	provider Provider

	docs      []Document
	indexID   string
	sessionID string
	window    *exchangeRing
}

// NewSession creates a session over the provider. Init must be called
// before Run.
func NewSession(p Provider, cfg Config) *Session {
	return &Session{
		cfg:      cfg,
		provider: p,
		window:   newExchangeRing(cfg.contextWindow()),
	}
}

// Name returns the session's logical name.
func (s *Session) Name() string {
	return s.cfg.Name
}

// Init uploads the configured documents (concurrently, order irrelevant),
// builds the knowledge index over them, waits for indexing to finish, and
// creates the remote session resource. Any step exhausting its retry budget
// fails with *InitError; the caller should still Deinit to release whatever
// was created before the failure.
func (s *Session) Init(ctx context.Context) error {
	log := slog.With("session", s.cfg.Name)
	log.Debug("completion: uploading documents", "count", len(s.cfg.Documents))

	uploads, err := pool.MapFailFast(ctx, len(s.cfg.Documents), s.cfg.Documents,
		func(ctx context.Context, _ int, path string) (Document, error) {
			return retry.DoValue(ctx, s.cfg.Retry, "upload document", func(ctx context.Context) (Document, error) {
				return s.provider.UploadDocument(ctx, path)
			})
		})
	for _, r := range uploads {
		if !r.Failed() {
			s.docs = append(s.docs, r.Value)
		}
	}
	if err != nil {
		return &InitError{Step: "upload documents", Err: err}
	}

	docIDs := make([]string, len(s.docs))
	for i, d := range s.docs {
		docIDs[i] = d.ID
	}
	s.indexID, err = retry.DoValue(ctx, s.cfg.Retry, "create index", func(ctx context.Context) (string, error) {
		return s.provider.CreateIndex(ctx, s.cfg.Name, docIDs)
	})
	if err != nil {
		return &InitError{Step: "create index", Err: err}
	}
	log.Debug("completion: knowledge index created", "index", s.indexID)

	if err := s.awaitIndex(ctx); err != nil {
		return &InitError{Step: "build index", Err: err}
	}

	s.sessionID, err = retry.DoValue(ctx, s.cfg.Retry, "create session", func(ctx context.Context) (string, error) {
		return s.provider.CreateSession(ctx, SessionSpec{
			Name:         s.cfg.Name,
			Instructions: s.cfg.Instructions,
			Model:        s.cfg.Model,
			IndexID:      s.indexID,
			Temperature:  s.cfg.Temperature,
			TopP:         s.cfg.TopP,
		})
	})
	if err != nil {
		return &InitError{Step: "create session", Err: err}
	}
	log.Debug("completion: session created", "id", s.sessionID)
	return nil
}

// awaitIndex polls the index build status until no documents remain in
// progress, bounded by the configured timeout.
func (s *Session) awaitIndex(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.indexTimeout())
	ticker := time.NewTicker(s.cfg.pollInterval())
	defer ticker.Stop()
	for {
		st, err := s.provider.IndexStatus(ctx, s.indexID)
		if err != nil {
			return err
		}
		if st.InProgress == 0 {
			slog.Debug("completion: index ready", "session", s.cfg.Name, "documents", st.Total)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d of %d documents still indexing", ErrIndexBuildTimeout, st.InProgress, st.Total)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Run appends messages to the bounded rolling context, opens a streamed
// generation over a fresh thread, and consumes it. Incomplete responses are
// resumed on the same thread up to the continuation budget. It returns the
// assistant messages produced by this run.
//
// After a run the remote transcript replaces the rolling context wholesale:
// the remote side is the source of truth for what was actually said.
func (s *Session) Run(ctx context.Context, messages []Exchange) ([]Exchange, error) {
	if s.sessionID == "" {
		return nil, ErrNotInitialized
	}
	log := slog.With("session", s.cfg.Name)

	sent := append(s.window.Snapshot(), messages...)
	run, err := retry.DoValue(ctx, s.cfg.Retry, "begin run", func(ctx context.Context) (Run, error) {
		return s.provider.BeginRun(ctx, s.sessionID, sent)
	})
	if err != nil {
		return nil, err
	}

	budget := s.cfg.maxContinuations()
	for attempt := 1; ; attempt++ {
		stream, err := retry.DoValue(ctx, s.cfg.Retry, "open stream", func(ctx context.Context) (Stream, error) {
			return run.Stream(ctx)
		})
		if err != nil {
			return nil, err
		}
		incomplete, reason, err := s.consume(stream)
		if err != nil {
			return nil, err
		}

		transcript, err := run.Transcript(ctx)
		if err != nil {
			return nil, err
		}
		s.window.Replace(transcript)

		if !incomplete {
			return producedBy(transcript, len(sent)), nil
		}
		if attempt >= budget {
			log.Warn("completion: continuation budget exhausted", "attempts", attempt, "reason", reason)
			return producedBy(transcript, len(sent)), &ContinuationError{Attempts: attempt}
		}
		log.Debug("completion: response incomplete, continuing", "attempt", attempt, "reason", reason)
	}
}

// runPhase tracks the stream state machine for debug logging.
type runPhase int

const (
	phaseStarted runPhase = iota
	phaseStreaming
	phaseToolCall
	phaseStepDone
)

// consume drives the stream state machine to completion. It reports whether
// the resulting message was flagged incomplete. Deltas are progress signal
// only; the transcript carries the authoritative text.
func (s *Session) consume(stream Stream) (incomplete bool, reason string, err error) {
	defer stream.Close()

	log := slog.With("session", s.cfg.Name)
	phase := phaseStarted
	for {
		ev, err := stream.Next()
		if err != nil {
			if errors.Is(err, ErrDone) {
				return incomplete, reason, nil
			}
			return false, "", fmt.Errorf("completion: stream: %w", err)
		}
		switch ev.Type {
		case EventTextDelta:
			if phase != phaseStreaming {
				log.Debug("completion: streaming text")
			}
			phase = phaseStreaming
		case EventToolCall:
			phase = phaseToolCall
			log.Debug("completion: tool call", "tool", ev.Tool)
		case EventStepDone:
			phase = phaseStepDone
			if ev.Step != nil {
				return false, "", ev.Step
			}
		case EventMessageDone:
			if ev.Incomplete {
				incomplete = true
				reason = ev.IncompleteReason
				log.Warn("completion: message incomplete", "reason", ev.IncompleteReason)
			}
		}
	}
}

// producedBy returns the assistant messages beyond the sent prefix. If the
// remote transcript was rewritten shorter than what was sent, it falls back
// to every assistant message.
func producedBy(transcript []Exchange, sentLen int) []Exchange {
	start := sentLen
	if start > len(transcript) {
		start = 0
	}
	var out []Exchange
	for _, e := range transcript[start:] {
		if e.Role == RoleAssistant {
			out = append(out, e)
		}
	}
	if out == nil && start > 0 {
		for _, e := range transcript {
			if e.Role == RoleAssistant {
				out = append(out, e)
			}
		}
	}
	return out
}

// Latest returns the assistant message at the given offset from the end of
// the rolling context (0 = most recent).
func (s *Session) Latest(offset int) (Exchange, error) {
	e, ok := s.window.At(RoleAssistant, offset)
	if !ok {
		return Exchange{}, fmt.Errorf("%w: offset %d", ErrNoMessage, offset)
	}
	return e, nil
}

// Deinit deletes the knowledge index, every uploaded document, and the
// session resource. Teardown is best effort: individual deletion failures
// are logged, not escalated, because a leaked remote resource must not turn
// a finished run into a failure. Safe to call repeatedly and on sessions
// whose Init failed partway.
func (s *Session) Deinit(ctx context.Context) {
	log := slog.With("session", s.cfg.Name)
	if s.indexID != "" {
		if err := s.provider.DeleteIndex(ctx, s.indexID); err != nil {
			log.Warn("completion: leaked knowledge index", "index", s.indexID, "err", err)
		} else {
			s.indexID = ""
		}
	}
	for i, d := range s.docs {
		if d.ID == "" {
			continue
		}
		if err := s.provider.DeleteDocument(ctx, d.ID); err != nil {
			log.Warn("completion: leaked document", "document", d.ID, "err", err)
		} else {
			s.docs[i].ID = ""
		}
	}
	if s.sessionID != "" {
		if err := s.provider.DeleteSession(ctx, s.sessionID); err != nil {
			log.Warn("completion: leaked session resource", "id", s.sessionID, "err", err)
		} else {
			s.sessionID = ""
		}
	}
}

// ParseLatest extracts the assistant message at the given offset from the
// end of the session's context and decodes the JSON object embedded in it.
func ParseLatest[T any](ctx context.Context, s *Session, offset int, dec structured.Decoder[T]) (T, error) {
	var zero T
	msg, err := s.Latest(offset)
	if err != nil {
		return zero, err
	}
	return dec.Decode(ctx, msg.Text)
}
