package program

import (
	"fmt"
	"time"

	"github.com/naelab/papercast/pkg/retry"
)

// Default option values applied by Normalize.
const (
	DefaultMinutes              = 15
	DefaultBGMVolume            = 0.25
	DefaultModel                = "gpt-4o-mini"
	DefaultSpeechModel          = "tts-1"
	DefaultChatConcurrency      = 10
	DefaultAssistantConcurrency = 10
	DefaultTTSConcurrency       = 20
	DefaultRetryCount           = 5
	DefaultRetryMaxDelay        = 150 * time.Second
)

// Options is the immutable per-run configuration. Zero fields are filled by
// Normalize; invariants are checked by Validate.
type Options struct {
	// Documents are the source documents the program is grounded in.
	Documents []string `yaml:"papers" json:"papers"`

	// Minutes is the target program duration.
	Minutes float64 `yaml:"minute" json:"minute"`

	// Language of the generated script.
	Language Language `yaml:"language" json:"language"`

	// BGM is an optional background track reference; BGMVolume is its mix
	// volume under the dialogue.
	BGM       string  `yaml:"bgm" json:"bgm"`
	BGMVolume float64 `yaml:"bgmVolume" json:"bgmVolume"`

	// Model drives every generation stage; SpeechModel drives synthesis.
	Model       string `yaml:"llmModel" json:"llmModel"`
	SpeechModel string `yaml:"ttsModel" json:"ttsModel"`

	// Per-stage concurrency limits.
	ChatConcurrency      int `yaml:"chatConcurrency" json:"chatConcurrency"`
	AssistantConcurrency int `yaml:"assistantConcurrency" json:"assistantConcurrency"`
	TTSConcurrency       int `yaml:"ttsConcurrency" json:"ttsConcurrency"`

	// RetryCount is the transport retry budget, also reused as the
	// per-section validation retry budget. RetryMaxDelay caps the
	// inter-attempt backoff.
	RetryCount    int           `yaml:"retryCount" json:"retryCount"`
	RetryMaxDelay time.Duration `yaml:"retryMaxDelay" json:"retryMaxDelay"`
}

// Normalize fills unset fields with their defaults.
func (o *Options) Normalize() {
	if o.Minutes == 0 {
		o.Minutes = DefaultMinutes
	}
	if o.Language == "" {
		o.Language = LanguageEnglish
	}
	if o.BGMVolume == 0 {
		o.BGMVolume = DefaultBGMVolume
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.SpeechModel == "" {
		o.SpeechModel = DefaultSpeechModel
	}
	if o.ChatConcurrency == 0 {
		o.ChatConcurrency = DefaultChatConcurrency
	}
	if o.AssistantConcurrency == 0 {
		o.AssistantConcurrency = DefaultAssistantConcurrency
	}
	if o.TTSConcurrency == 0 {
		o.TTSConcurrency = DefaultTTSConcurrency
	}
	if o.RetryCount == 0 {
		o.RetryCount = DefaultRetryCount
	}
	if o.RetryMaxDelay == 0 {
		o.RetryMaxDelay = DefaultRetryMaxDelay
	}
}

// ValidationError reports a configuration invariant violation. Validation
// failures happen before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("program: invalid options: %s: %s", e.Field, e.Reason)
}

// Validate checks the option invariants. Call Normalize first.
func (o *Options) Validate() error {
	if len(o.Documents) == 0 {
		return &ValidationError{Field: "papers", Reason: "at least one source document is required"}
	}
	if o.Minutes <= 0 {
		return &ValidationError{Field: "minute", Reason: "duration must be positive"}
	}
	if !o.Language.known() {
		return &ValidationError{Field: "language", Reason: fmt.Sprintf("unsupported language %q", o.Language)}
	}
	if o.BGMVolume < 0 {
		return &ValidationError{Field: "bgmVolume", Reason: "volume must not be negative"}
	}
	if o.ChatConcurrency < 1 || o.AssistantConcurrency < 1 || o.TTSConcurrency < 1 {
		return &ValidationError{Field: "concurrency", Reason: "concurrency limits must be at least 1"}
	}
	if o.RetryCount < 1 {
		return &ValidationError{Field: "retryCount", Reason: "retry budget must be at least 1"}
	}
	return nil
}

// RetryPolicy derives the transport retry policy from the options.
func (o *Options) RetryPolicy() retry.Policy {
	return retry.Policy{
		Attempts: o.RetryCount,
		MaxDelay: o.RetryMaxDelay,
	}
}
