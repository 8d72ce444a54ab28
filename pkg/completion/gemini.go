package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"

	"github.com/naelab/papercast/pkg/structured"
)

var _ structured.Completer = (*GeminiCompleter)(nil)

// GeminiCompleter implements structured.Completer using the Gemini API. It
// is an alternative repair backend for deployments that run generation on
// OpenAI but keep a cheaper model around for JSON repair.
type GeminiCompleter struct {
	Client *genai.Client

	// Model should not start with "models/"
	Model string

	// Temperature defaults to DefaultFixerTemperature when zero.
	Temperature float32
}

func (c *GeminiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temp := c.Temperature
	if temp == 0 {
		temp = DefaultFixerTemperature
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(temp),
	}
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	resp, err := c.Client.Models.GenerateContent(ctx, c.Model, contents, cfg)
	if err != nil {
		if e, ok := err.(*apierror.APIError); ok {
			err = e.Unwrap()
		}
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates")
	}
	t := resp.Candidates[0]
	if t.FinishReason != genai.FinishReasonStop {
		return "", fmt.Errorf("unexpected finish reason: %s", t.FinishReason)
	}
	var sb strings.Builder
	for _, p := range t.Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}
