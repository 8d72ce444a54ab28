package program

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/naelab/papercast/pkg/completion"
	"github.com/naelab/papercast/pkg/tts"
)

type fakeSession struct {
	cfg      completion.Config
	replies  []string
	initErr  error
	runErr   error
	runCalls int
	deinited int
	requests []string
}

func (s *fakeSession) Init(context.Context) error {
	return s.initErr
}

func (s *fakeSession) Run(_ context.Context, msgs []completion.Exchange) ([]completion.Exchange, error) {
	s.requests = append(s.requests, msgs[len(msgs)-1].Text)
	if s.runErr != nil {
		return nil, s.runErr
	}
	if s.runCalls >= len(s.replies) {
		return nil, fmt.Errorf("unexpected run %d", s.runCalls)
	}
	s.runCalls++
	return []completion.Exchange{{Role: completion.RoleAssistant, Text: s.replies[s.runCalls-1]}}, nil
}

func (s *fakeSession) Latest(offset int) (completion.Exchange, error) {
	i := s.runCalls - 1 - offset
	if i < 0 {
		return completion.Exchange{}, completion.ErrNoMessage
	}
	return completion.Exchange{Role: completion.RoleAssistant, Text: s.replies[i]}, nil
}

func (s *fakeSession) Deinit(context.Context) {
	s.deinited++
}

// stageSessions hands each stage its scripted fake, matched by the stage
// prefix of the session name.
type stageSessions struct {
	mu      sync.Mutex
	byStage map[string]*fakeSession
}

func (f *stageSessions) factory(cfg completion.Config) Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	for prefix, s := range f.byStage {
		if strings.HasPrefix(cfg.Name, prefix) {
			s.cfg = cfg
			return s
		}
	}
	return &fakeSession{initErr: fmt.Errorf("no scripted session for %q", cfg.Name)}
}

const (
	outlineReply = `{"totalTurns": 4, "program": [
		{"title": "Intro", "conversationTurns": 2, "contents": ["opening"]},
		{"title": "Findings", "conversationTurns": 2, "contents": ["results"]}
	]}`
	introChunkReply = `{"title": "Intro", "conversationTurns": 2, "script": [
		{"speaker": "onyx", "voice": "onyx", "text": "Welcome."},
		{"speaker": "Jane Doe", "voice": "echo", "text": "Glad to be here."}
	]}`
	findingsChunkReply = `{"title": "Findings", "conversationTurns": 2, "script": [
		{"speaker": "onyx", "voice": "onyx", "text": "What did you find?"},
		{"speaker": "Jane Doe", "voice": "echo", "text": "Quite a lot."}
	]}`
	emptyChunkReply = `{"title": "Intro", "conversationTurns": 0, "script": []}`
)

func testOptions() Options {
	return Options{Documents: []string{"paper.pdf"}}
}

func TestPipelineRun(t *testing.T) {
	stages := &stageSessions{byStage: map[string]*fakeSession{
		"program-writer":   {replies: []string{outlineReply}},
		"info-extractor-0": {replies: []string{`{"result": "Jane Doe"}`}},
		"info-extractor-1": {replies: []string{`{"result": "A Study of Things"}`}},
		"info-extractor-2": {replies: []string{`{"result": "echo"}`}},
		"script-writer":    {replies: []string{introChunkReply, findingsChunkReply}},
	}}
	p, err := New(testOptions(), stages.factory, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got, want := res.Metadata.Author, "Jane Doe"; got != want {
		t.Errorf("Author = %q, want %q", got, want)
	}
	if got, want := res.Metadata.Title, "A Study of Things"; got != want {
		t.Errorf("Title = %q, want %q", got, want)
	}
	if got, want := res.Metadata.GuestVoice, tts.VoiceEcho; got != want {
		t.Errorf("GuestVoice = %q, want %q", got, want)
	}
	if len(res.Chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(res.Chunks))
	}
	if res.Chunks[0].Section != "Intro" || res.Chunks[1].Section != "Findings" {
		t.Errorf("chunk order = %q, %q", res.Chunks[0].Section, res.Chunks[1].Section)
	}
	if len(res.Script) != 4 {
		t.Fatalf("script turns = %d, want 4", len(res.Script))
	}
	if res.Script[0].Text != "Welcome." || res.Script[3].Text != "Quite a lot." {
		t.Errorf("script is not the in-order concatenation of chunks: %v", res.Script)
	}

	// Every stage session is torn down exactly once.
	for stage, s := range stages.byStage {
		if s.deinited != 1 {
			t.Errorf("stage %s deinited %d times, want 1", stage, s.deinited)
		}
	}
}

func TestPipelineExtractionFallbacks(t *testing.T) {
	stages := &stageSessions{byStage: map[string]*fakeSession{
		"program-writer":   {replies: []string{outlineReply}},
		"info-extractor-0": {initErr: errors.New("quota exceeded")},
		"info-extractor-1": {replies: []string{`{"result": "A Study of Things"}`}},
		// The host voice is not a valid guest choice.
		"info-extractor-2": {replies: []string{`{"result": "onyx"}`}},
		"script-writer":    {replies: []string{introChunkReply, findingsChunkReply}},
	}}
	p, err := New(testOptions(), stages.factory, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Metadata.Author != UnknownAuthor {
		t.Errorf("Author = %q, want fallback %q", res.Metadata.Author, UnknownAuthor)
	}
	if res.Metadata.Title != "A Study of Things" {
		t.Errorf("Title = %q, sibling failure leaked", res.Metadata.Title)
	}
	if res.Metadata.GuestVoice != tts.DefaultGuestVoice {
		t.Errorf("GuestVoice = %q, want default %q", res.Metadata.GuestVoice, tts.DefaultGuestVoice)
	}
}

func TestPipelineSectionRetry(t *testing.T) {
	writer := &fakeSession{replies: []string{emptyChunkReply, introChunkReply, findingsChunkReply}}
	stages := &stageSessions{byStage: map[string]*fakeSession{
		"program-writer":   {replies: []string{outlineReply}},
		"info-extractor-0": {replies: []string{`{"result": "Jane Doe"}`}},
		"info-extractor-1": {replies: []string{`{"result": "T"}`}},
		"info-extractor-2": {replies: []string{`{"result": "echo"}`}},
		"script-writer":    writer,
	}}
	p, err := New(testOptions(), stages.factory, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if writer.runCalls != 3 {
		t.Errorf("writer runs = %d, want 3 (one retry on the empty section)", writer.runCalls)
	}
	if len(res.Chunks) != 2 || len(res.Chunks[0].Turns) != 2 {
		t.Fatalf("chunks = %v, want the retried section filled", res.Chunks)
	}
}

func TestPipelineSectionRetryExhausted(t *testing.T) {
	writer := &fakeSession{replies: []string{emptyChunkReply, emptyChunkReply}}
	stages := &stageSessions{byStage: map[string]*fakeSession{
		"program-writer":   {replies: []string{outlineReply}},
		"info-extractor-0": {replies: []string{`{"result": "Jane Doe"}`}},
		"info-extractor-1": {replies: []string{`{"result": "T"}`}},
		"info-extractor-2": {replies: []string{`{"result": "echo"}`}},
		"script-writer":    writer,
	}}
	opts := testOptions()
	opts.RetryCount = 2
	p, err := New(opts, stages.factory, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(context.Background())
	if !errors.Is(err, ErrEmptyScript) {
		t.Fatalf("Run error = %v, want ErrEmptyScript", err)
	}
	if writer.deinited != 1 {
		t.Errorf("writer deinited %d times, want 1 even on failure", writer.deinited)
	}
}

func TestPipelineSectionTransportErrorAborts(t *testing.T) {
	boom := errors.New("stream reset")
	writer := &fakeSession{runErr: boom}
	stages := &stageSessions{byStage: map[string]*fakeSession{
		"program-writer":   {replies: []string{outlineReply}},
		"info-extractor-0": {replies: []string{`{"result": "Jane Doe"}`}},
		"info-extractor-1": {replies: []string{`{"result": "T"}`}},
		"info-extractor-2": {replies: []string{`{"result": "echo"}`}},
		"script-writer":    writer,
	}}
	opts := testOptions()
	opts.RetryCount = 3
	p, err := New(opts, stages.factory, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want the transport error", err)
	}
	// The session already retried transport failures under its own
	// policy; the section loop must not multiply that budget.
	if got := len(writer.requests); got != 1 {
		t.Errorf("writer attempts = %d, want 1", got)
	}
	if writer.deinited != 1 {
		t.Errorf("writer deinited %d times, want 1", writer.deinited)
	}
}

func TestPipelineOutlineFailure(t *testing.T) {
	stages := &stageSessions{byStage: map[string]*fakeSession{
		"program-writer": {replies: []string{"I cannot answer that."}},
	}}
	p, err := New(testOptions(), stages.factory, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("Run succeeded on an unparseable outline")
	}
	if s := stages.byStage["program-writer"]; s.deinited != 1 {
		t.Errorf("planner deinited %d times, want 1", s.deinited)
	}
}

func TestPipelineSectionRequestsCarryLookahead(t *testing.T) {
	writer := &fakeSession{replies: []string{introChunkReply, findingsChunkReply}}
	stages := &stageSessions{byStage: map[string]*fakeSession{
		"program-writer":   {replies: []string{outlineReply}},
		"info-extractor-0": {replies: []string{`{"result": "Jane Doe"}`}},
		"info-extractor-1": {replies: []string{`{"result": "T"}`}},
		"info-extractor-2": {replies: []string{`{"result": "echo"}`}},
		"script-writer":    writer,
	}}
	p, err := New(testOptions(), stages.factory, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(writer.requests) != 2 {
		t.Fatalf("writer requests = %d, want 2", len(writer.requests))
	}
	if !strings.Contains(writer.requests[0], `"nextSection"`) {
		t.Errorf("first section request has no lookahead: %s", writer.requests[0])
	}
	if strings.Contains(writer.requests[1], `"nextSection"`) {
		t.Errorf("last section request should have no lookahead: %s", writer.requests[1])
	}
}
