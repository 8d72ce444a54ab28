package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
)

var _ Synthesizer = (*OpenAI)(nil)

// DefaultSpeechModel is the synthesis model used when none is configured.
const DefaultSpeechModel = "tts-1"

// OpenAI synthesizes speech through the OpenAI audio endpoint, producing WAV
// bytes so segments can be concatenated without an intermediate decode.
type OpenAI struct {
	Client *openai.Client

	// Model defaults to DefaultSpeechModel.
	Model string
}

func (s *OpenAI) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	if !voice.Valid() {
		return nil, fmt.Errorf("tts: unknown voice %q", voice)
	}
	model := s.Model
	if model == "" {
		model = DefaultSpeechModel
	}
	resp, err := s.Client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          model,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Retryable reports whether a synthesis error is worth another attempt:
// rate limiting and server-side failures are, request errors are not.
func Retryable(err error) bool {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == http.StatusTooManyRequests || apierr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
