package completion

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/packages/ssestream"
)

var _ Provider = (*OpenAIProvider)(nil)

// SessionNamePrefix marks the remote resources this package creates so that
// stale ones left behind by crashed runs can be found and reaped later.
const SessionNamePrefix = "papercast-file-search"

const (
	// oaiMaxSearchResults caps how many indexed chunks one retrieval pass
	// may pull into the model context.
	oaiMaxSearchResults = 50

	oaiEventThreadMessageDelta      = "thread.message.delta"
	oaiEventThreadMessageCompleted  = "thread.message.completed"
	oaiEventThreadMessageIncomplete = "thread.message.incomplete"
	oaiEventThreadRunStepDelta      = "thread.run.step.delta"
	oaiEventThreadRunStepCompleted  = "thread.run.step.completed"
	oaiEventThreadRunStepFailed     = "thread.run.step.failed"
	oaiEventThreadRunFailed         = "thread.run.failed"
	oaiEventError                   = "error"
)

// OpenAIProvider implements Provider on the OpenAI assistants surface:
// documents become files, the knowledge index becomes a vector store, the
// session resource becomes an assistant with the file_search tool, and each
// generation run becomes a thread run consumed as a server-sent event stream.
type OpenAIProvider struct {
	Client *openai.Client
}

func (p *OpenAIProvider) resourceName(name string) string {
	return SessionNamePrefix + "-" + name
}

func (p *OpenAIProvider) UploadDocument(ctx context.Context, path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	file, err := p.Client.Files.New(ctx, openai.FileNewParams{
		File:    f,
		Purpose: openai.FilePurposeAssistants,
	})
	if err != nil {
		return Document{}, fmt.Errorf("upload %s: %w", path, err)
	}
	return Document{ID: file.ID, Name: file.Filename}, nil
}

func (p *OpenAIProvider) DeleteDocument(ctx context.Context, id string) error {
	_, err := p.Client.Files.Delete(ctx, id)
	return err
}

func (p *OpenAIProvider) CreateIndex(ctx context.Context, name string, docIDs []string) (string, error) {
	vs, err := p.Client.VectorStores.New(ctx, openai.VectorStoreNewParams{
		Name:    param.NewOpt(p.resourceName(name)),
		FileIDs: docIDs,
	})
	if err != nil {
		return "", err
	}
	return vs.ID, nil
}

func (p *OpenAIProvider) IndexStatus(ctx context.Context, indexID string) (IndexStatus, error) {
	vs, err := p.Client.VectorStores.Get(ctx, indexID)
	if err != nil {
		return IndexStatus{}, err
	}
	return IndexStatus{
		Total:      int(vs.FileCounts.Total),
		InProgress: int(vs.FileCounts.InProgress),
		Completed:  int(vs.FileCounts.Completed),
	}, nil
}

func (p *OpenAIProvider) DeleteIndex(ctx context.Context, indexID string) error {
	_, err := p.Client.VectorStores.Delete(ctx, indexID)
	return err
}

func (p *OpenAIProvider) CreateSession(ctx context.Context, spec SessionSpec) (string, error) {
	params := openai.BetaAssistantNewParams{
		Model:        spec.Model,
		Name:         param.NewOpt(p.resourceName(spec.Name)),
		Instructions: param.NewOpt(spec.Instructions),
		Tools: []openai.AssistantToolUnionParam{{
			OfFileSearch: &openai.FileSearchToolParam{
				FileSearch: openai.FileSearchToolFileSearchParam{
					MaxNumResults: param.NewOpt(int64(oaiMaxSearchResults)),
				},
			},
		}},
		ToolResources: openai.BetaAssistantNewParamsToolResources{
			FileSearch: openai.BetaAssistantNewParamsToolResourcesFileSearch{
				VectorStoreIDs: []string{spec.IndexID},
			},
		},
	}
	if spec.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(spec.Temperature))
	}
	if spec.TopP > 0 {
		params.TopP = param.NewOpt(float64(spec.TopP))
	}
	a, err := p.Client.Beta.Assistants.New(ctx, params)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

func (p *OpenAIProvider) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := p.Client.Beta.Assistants.Delete(ctx, sessionID)
	return err
}

func (p *OpenAIProvider) BeginRun(ctx context.Context, sessionID string, messages []Exchange) (Run, error) {
	seed := make([]openai.BetaThreadNewParamsMessage, len(messages))
	for i, m := range messages {
		seed[i] = openai.BetaThreadNewParamsMessage{
			Role: string(m.Role),
			Content: openai.BetaThreadNewParamsMessageContentUnion{
				OfString: param.NewOpt(m.Text),
			},
		}
	}
	thread, err := p.Client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{Messages: seed})
	if err != nil {
		return nil, err
	}
	return &openaiRun{provider: p, assistantID: sessionID, threadID: thread.ID}, nil
}

// openaiRun is one thread created for one Run call. Repeated Stream calls
// start fresh passes on the same thread, which resumes generation where the
// previous incomplete message stopped.
type openaiRun struct {
	provider    *OpenAIProvider
	assistantID string
	threadID    string
}

func (r *openaiRun) Stream(ctx context.Context) (Stream, error) {
	s := r.provider.Client.Beta.Threads.Runs.NewStreaming(ctx, r.threadID, openai.BetaThreadRunNewParams{
		AssistantID: r.assistantID,
	})
	if err := s.Err(); err != nil {
		return nil, err
	}
	return &openaiStream{events: s}, nil
}

func (r *openaiRun) Transcript(ctx context.Context) ([]Exchange, error) {
	var out []Exchange
	iter := r.provider.Client.Beta.Threads.Messages.ListAutoPaging(ctx, r.threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderAsc,
	})
	for iter.Next() {
		msg := iter.Current()
		var text strings.Builder
		for _, c := range msg.Content {
			text.WriteString(c.Text.Value)
		}
		out = append(out, Exchange{Role: Role(msg.Role), Text: text.String()})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// openaiStream translates assistant SSE events into the vendor-agnostic
// event set. Events that do not map to one (thread and run lifecycle
// notifications) are skipped.
type openaiStream struct {
	events *ssestream.Stream[openai.AssistantStreamEventUnion]
}

func (s *openaiStream) Next() (*Event, error) {
	for s.events.Next() {
		ev := s.events.Current()
		switch ev.Event {
		case oaiEventThreadMessageDelta:
			var text strings.Builder
			for _, c := range ev.Data.Delta.Content {
				text.WriteString(c.Text.Value)
			}
			return &Event{Type: EventTextDelta, Text: text.String()}, nil
		case oaiEventThreadMessageCompleted, oaiEventThreadMessageIncomplete:
			out := &Event{Type: EventMessageDone}
			if reason := ev.Data.IncompleteDetails.Reason; reason != "" {
				out.Incomplete = true
				out.IncompleteReason = string(reason)
			}
			return out, nil
		case oaiEventThreadRunStepDelta:
			for _, tc := range ev.Data.Delta.StepDetails.ToolCalls {
				if tc.Type != "" {
					return &Event{Type: EventToolCall, Tool: string(tc.Type)}, nil
				}
			}
		case oaiEventThreadRunStepCompleted:
			return &Event{Type: EventStepDone}, nil
		case oaiEventThreadRunStepFailed, oaiEventThreadRunFailed:
			return &Event{Type: EventStepDone, Step: &StepError{
				Code:    string(ev.Data.LastError.Code),
				Message: ev.Data.LastError.Message,
			}}, nil
		case oaiEventError:
			return nil, fmt.Errorf("completion: remote stream error: %s", ev.RawJSON())
		}
	}
	if err := s.events.Err(); err != nil {
		return nil, err
	}
	return nil, ErrDone
}

func (s *openaiStream) Close() error {
	return s.events.Close()
}

// CleanSessions deletes every assistant and vector store whose name carries
// SessionNamePrefix, along with every assistants-purpose file. Meant for
// reaping resources leaked by crashed runs; returns how many resources were
// removed.
func (p *OpenAIProvider) CleanSessions(ctx context.Context) (int, error) {
	removed := 0

	assistants := p.Client.Beta.Assistants.ListAutoPaging(ctx, openai.BetaAssistantListParams{})
	for assistants.Next() {
		a := assistants.Current()
		if !strings.HasPrefix(a.Name, SessionNamePrefix) {
			continue
		}
		if _, err := p.Client.Beta.Assistants.Delete(ctx, a.ID); err != nil {
			return removed, fmt.Errorf("delete assistant %s: %w", a.ID, err)
		}
		removed++
	}
	if err := assistants.Err(); err != nil {
		return removed, err
	}

	stores := p.Client.VectorStores.ListAutoPaging(ctx, openai.VectorStoreListParams{})
	for stores.Next() {
		vs := stores.Current()
		if !strings.HasPrefix(vs.Name, SessionNamePrefix) {
			continue
		}
		if _, err := p.Client.VectorStores.Delete(ctx, vs.ID); err != nil {
			return removed, fmt.Errorf("delete vector store %s: %w", vs.ID, err)
		}
		removed++
	}
	if err := stores.Err(); err != nil {
		return removed, err
	}

	files := p.Client.Files.ListAutoPaging(ctx, openai.FileListParams{
		Purpose: param.NewOpt(string(openai.FilePurposeAssistants)),
	})
	for files.Next() {
		f := files.Current()
		if _, err := p.Client.Files.Delete(ctx, f.ID); err != nil {
			return removed, fmt.Errorf("delete file %s: %w", f.ID, err)
		}
		removed++
	}
	if err := files.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}
