package program

import (
	"strings"
	"testing"
	"time"

	"github.com/naelab/papercast/pkg/tts"
)

func TestTurnsForDuration(t *testing.T) {
	tests := []struct {
		minutes float64
		want    int
	}{
		{5, 23},
		{15, 69},
		{1, 4},
		{0.5, 2},
	}
	for _, tt := range tests {
		if got := TurnsForDuration(tt.minutes); got != tt.want {
			t.Errorf("TurnsForDuration(%v) = %d, want %d", tt.minutes, got, tt.want)
		}
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{Documents: []string{"a.pdf"}}
	o.Normalize()
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate after Normalize: %v", err)
	}
	if o.Minutes != DefaultMinutes {
		t.Errorf("Minutes = %v, want %v", o.Minutes, DefaultMinutes)
	}
	if o.Language != LanguageEnglish {
		t.Errorf("Language = %q, want en", o.Language)
	}
	if o.TTSConcurrency != DefaultTTSConcurrency {
		t.Errorf("TTSConcurrency = %d, want %d", o.TTSConcurrency, DefaultTTSConcurrency)
	}
	if o.RetryMaxDelay != DefaultRetryMaxDelay {
		t.Errorf("RetryMaxDelay = %v, want %v", o.RetryMaxDelay, DefaultRetryMaxDelay)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{"no documents", func(o *Options) { o.Documents = nil }, "papers"},
		{"negative duration", func(o *Options) { o.Minutes = -1 }, "minute"},
		{"unknown language", func(o *Options) { o.Language = "fr" }, "language"},
		{"zero concurrency", func(o *Options) { o.TTSConcurrency = -1 }, "concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Options{Documents: []string{"a.pdf"}}
			o.Normalize()
			tt.mutate(&o)
			err := o.Validate()
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain_Title"},
		{"a/b\\c:d", "a_b_c_d"},
		{"trailing dots...", "trailing_dots"},
		{"  spaced   out  ", "spaced_out"},
		{"", "output"},
		{"///", "output"},
		{strings.Repeat("x", 60), strings.Repeat("x", 40)},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDistributionName(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	got := DistributionName("A Study: of Things", at)
	want := "A_Study_of_Things_20260314-092653"
	if got != want {
		t.Errorf("DistributionName = %q, want %q", got, want)
	}
}

func TestPromptsCarrySchemas(t *testing.T) {
	outline := OutlinePrompt(LanguageEnglish)
	if !strings.Contains(outline, "totalTurns") {
		t.Error("outline prompt is missing the output schema")
	}
	if !strings.Contains(outline, "100 turns") {
		t.Error("outline prompt is missing the worked example")
	}

	extractor := ExtractorPrompt()
	if !strings.Contains(extractor, `"result"`) {
		t.Error("extractor prompt is missing the result envelope")
	}

	script := ScriptPrompt(LanguageJapanese, tts.DefaultHostVoice, tts.VoiceEcho)
	for _, want := range []string{"onyx", "echo", "nextSection", "日本語"} {
		if !strings.Contains(script, want) {
			t.Errorf("script prompt is missing %q", want)
		}
	}
}
