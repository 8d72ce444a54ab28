// Package tts synthesizes dialogue turns to speech. Synthesizers are
// registered on a pattern mux keyed by voice path, so a deployment can route
// individual voices to different backends while keeping a wildcard default.
package tts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/naelab/papercast/pkg/trie"
)

// Voice identifies a synthesis voice.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"
)

// Voices is the full voice set.
var Voices = []Voice{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}

const (
	// DefaultHostVoice speaks the host role.
	DefaultHostVoice = VoiceOnyx

	// DefaultGuestVoice speaks the guest role when no voice was selected.
	DefaultGuestVoice = VoiceFable
)

// Valid reports whether v names a known voice.
func (v Voice) Valid() bool {
	for _, known := range Voices {
		if v == known {
			return true
		}
	}
	return false
}

// GuestVoices are the voices a guest may be assigned. The host voice is
// excluded so host and guest never sound the same.
func GuestVoices() []Voice {
	out := make([]Voice, 0, len(Voices)-1)
	for _, v := range Voices {
		if v != DefaultHostVoice {
			out = append(out, v)
		}
	}
	return out
}

// Synthesizer converts one utterance to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

// SynthesizeFunc is a function that implements the Synthesizer interface.
type SynthesizeFunc func(ctx context.Context, text string, voice Voice) ([]byte, error)

// Synthesize implements the Synthesizer interface.
func (f SynthesizeFunc) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	return f(ctx, text, voice)
}

// Mux routes synthesis requests to registered synthesizers by voice name.
// Patterns follow trie path rules, so "#" registers a catch-all backend and
// an exact voice name overrides it.
type Mux struct {
	mux *trie.Trie[Synthesizer]
}

var _ Synthesizer = (*Mux)(nil)

// NewMux creates an empty voice mux.
func NewMux() *Mux {
	return &Mux{mux: trie.New[Synthesizer]()}
}

// Handle registers a synthesizer for the given voice pattern.
func (m *Mux) Handle(pattern string, s Synthesizer) error {
	return m.mux.Set(pattern, func(ptr *Synthesizer, existed bool) error {
		*ptr = s
		if existed {
			slog.Warn("tts: synthesizer already registered", "pattern", pattern)
		}
		return nil
	})
}

// HandleFunc registers a synthesizer function for the given voice pattern.
func (m *Mux) HandleFunc(pattern string, f SynthesizeFunc) error {
	return m.Handle(pattern, f)
}

// Synthesize routes to the synthesizer registered for voice.
func (m *Mux) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	syn, ok := m.mux.GetValue(string(voice))
	if !ok || syn == nil {
		return nil, fmt.Errorf("tts: no synthesizer for voice %q", voice)
	}
	return syn.Synthesize(ctx, text, voice)
}
