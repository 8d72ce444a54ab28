// Package completion wraps a remote generative-completion service behind an
// owned session object with an explicit lifecycle: Init uploads reference
// documents and builds a knowledge index over them, Run issues streamed
// generation requests grounded in that index, and Deinit tears every remote
// resource down again so nothing billable leaks.
//
// The package depends only on the Provider operation set, not on any
// vendor's stateful resource model; OpenAIProvider is the production
// implementation.
package completion

import "context"

// Role identifies the author of an exchange.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Exchange is one message of a session's rolling conversation context.
type Exchange struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Document is a remote handle for one uploaded reference document.
type Document struct {
	ID   string
	Name string
}

// IndexStatus reports the build progress of a knowledge index. The index is
// ready once InProgress reaches zero.
type IndexStatus struct {
	Total      int
	InProgress int
	Completed  int
}

// SessionSpec carries the parameters for creating a remote session resource
// bound to a knowledge index.
type SessionSpec struct {
	Name         string
	Instructions string
	Model        string
	IndexID      string

	// Sampling parameters; zero means provider default.
	Temperature float32
	TopP        float32
}

// Run is one generation thread opened against a session. Re-invoking Stream
// on the same Run continues generation on the same thread, which is how
// incomplete responses are resumed.
type Run interface {
	// Stream opens one streamed generation pass over the run's thread.
	Stream(ctx context.Context) (Stream, error)

	// Transcript lists the thread's messages in chronological order. After
	// a pass the remote transcript is the authoritative conversation state.
	Transcript(ctx context.Context) ([]Exchange, error)
}

// Provider is the operation set a session needs from the remote service.
type Provider interface {
	UploadDocument(ctx context.Context, path string) (Document, error)
	DeleteDocument(ctx context.Context, id string) error

	CreateIndex(ctx context.Context, name string, docIDs []string) (string, error)
	IndexStatus(ctx context.Context, indexID string) (IndexStatus, error)
	DeleteIndex(ctx context.Context, indexID string) error

	CreateSession(ctx context.Context, spec SessionSpec) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// BeginRun creates a generation thread seeded with the given messages.
	BeginRun(ctx context.Context, sessionID string, messages []Exchange) (Run, error)
}
