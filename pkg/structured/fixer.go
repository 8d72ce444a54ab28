package structured

import (
	"context"
	"fmt"
)

// Completer produces one assistant reply for a system instruction plus a
// single user message. It is the minimal surface the corrective tier needs
// from a chat backend; implementations should pin temperature low.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// fixerInstructions is the fixed corrective prompt: a role, one
// input/output example pair, nothing else.
const fixerInstructions = `# Role
JSON Fixer

# Instructions
Fix the JSON

# Input
Invalid JSON text

## Input example
` + "```json" + `
{"totalTurns":18,"program":[{"title":"Background","conversationTurns":6}{"title":"Method","conversationTurns":6"}]}}
` + "```" + `

# Output
Valid JSON text

## Output example
` + "```json" + `
{"totalTurns":18,"program":[{"title":"Background","conversationTurns":6},{"title":"Method","conversationTurns":6}]}
` + "```" + `
`

// ChatFixer implements Fixer on top of any Completer.
type ChatFixer struct {
	Completer Completer
}

// Fix asks the completer to rewrite broken into valid JSON.
func (f *ChatFixer) Fix(ctx context.Context, broken string) (string, error) {
	if f.Completer == nil {
		return "", fmt.Errorf("structured: no completer configured")
	}
	return f.Completer.Complete(ctx, fixerInstructions, "Fix the following JSON\n\n"+broken)
}

var _ Fixer = (*ChatFixer)(nil)
