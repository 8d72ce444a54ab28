package completion

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	"github.com/naelab/papercast/pkg/structured"
)

var _ structured.Completer = (*OpenAICompleter)(nil)

// DefaultFixerTemperature keeps repair completions near-deterministic while
// leaving the model enough freedom to restructure broken output.
const DefaultFixerTemperature = 0.25

// OpenAICompleter implements structured.Completer with a single
// non-streaming chat completion. Used as the repair backend for
// structured.ChatFixer.
type OpenAICompleter struct {
	Client *openai.Client

	Model string

	// Temperature defaults to DefaultFixerTemperature when zero.
	Temperature float32
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temp := float64(c.Temperature)
	if temp == 0 {
		temp = DefaultFixerTemperature
	}
	resp, err := c.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: param.NewOpt(temp),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("blocked: %s", choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}
