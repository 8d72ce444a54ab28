// Package program turns a set of source documents into a finished dialogue
// script: it plans an outline, extracts program metadata, and writes the
// script section by section, all through grounded completion sessions.
package program

import (
	"math"

	"github.com/naelab/papercast/pkg/tts"
)

// Language selects the program's output language.
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageJapanese Language = "ja"
	LanguageKorean   Language = "ko"
)

// Label returns the language's self-describing display name, used verbatim
// inside stage instructions.
func (l Language) Label() string {
	switch l {
	case LanguageJapanese:
		return "日本語"
	case LanguageKorean:
		return "한국어"
	default:
		return "English"
	}
}

func (l Language) known() bool {
	switch l {
	case LanguageEnglish, LanguageJapanese, LanguageKorean:
		return true
	}
	return false
}

// AverageTurnSeconds is the measured mean duration of one synthesized
// dialogue turn. Duration targets are converted to turn counts with it.
const AverageTurnSeconds = 13.033141

// TurnsForDuration returns the number of dialogue turns that fit the target
// duration in minutes.
func TurnsForDuration(minutes float64) int {
	return int(math.Floor(minutes * 60 / AverageTurnSeconds))
}

// Section is one planned chapter of the program.
type Section struct {
	Title    string   `json:"title"`
	Turns    int      `json:"conversationTurns"`
	Contents []string `json:"contents"`
}

// Outline is the structural plan produced before any dialogue is written.
// Per-section turn counts approximate TotalTurns; drift is tolerated.
type Outline struct {
	TotalTurns int       `json:"totalTurns"`
	Sections   []Section `json:"program"`
}

// Turn is one speaker's utterance. Slice order is playback order.
type Turn struct {
	Speaker string    `json:"speaker"`
	Voice   tts.Voice `json:"voice"`
	Text    string    `json:"text"`
}

// Chunk is the script written for one outline section.
type Chunk struct {
	Section string `json:"section"`
	Turns   []Turn `json:"script"`
}

// Metadata is what the extraction stage learns about the source documents.
type Metadata struct {
	Author     string
	Title      string
	GuestVoice tts.Voice
}

// Fallback values for extraction slots whose task failed.
const (
	UnknownAuthor = "Unknown author"
	UnknownTitle  = "Unknown title"
)
