// Package structured recovers typed values from model-generated text that is
// expected to contain one JSON object. Generated output is not guaranteed to
// be well-formed, so decoding runs through an ordered ladder of recovery
// tiers instead of failing on the first syntax error:
//
//  1. parse the text as-is
//  2. extract the first {...} span and parse that
//  3. repair the span with jsonrepair, then parse
//  4. ask a lightweight corrective completion (the Fixer) to rewrite it
//
// Only when every tier fails does Decode return an *UnrecoverableParseError
// carrying the original text for diagnostics.
package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoObject is returned when the text contains no JSON object at all.
var ErrNoObject = errors.New("structured: no JSON object found in text")

// UnrecoverableParseError reports that every recovery tier failed. Text is
// the original input, preserved for diagnostics.
type UnrecoverableParseError struct {
	Text string
	Err  error
}

func (e *UnrecoverableParseError) Error() string {
	return fmt.Sprintf("structured: unrecoverable JSON: %v", e.Err)
}

func (e *UnrecoverableParseError) Unwrap() error {
	return e.Err
}

// objectRE matches from the first '{' to the last '}', spanning lines.
// Prose around the object (markdown fences, commentary) is discarded.
var objectRE = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractObject returns the first JSON object span embedded in text.
func ExtractObject(text string) (string, error) {
	m := objectRE.FindString(text)
	if m == "" {
		return "", ErrNoObject
	}
	return m, nil
}

// Fixer rewrites broken JSON into valid JSON via a corrective generation
// call. Implementations live with the completion providers.
type Fixer interface {
	Fix(ctx context.Context, broken string) (string, error)
}

// Decoder decodes values of type T from model output. The zero value runs
// tiers 1-3; set Fixer to enable the corrective tier.
type Decoder[T any] struct {
	Fixer Fixer
}

// Decode runs the recovery ladder over text.
func (d Decoder[T]) Decode(ctx context.Context, text string) (T, error) {
	var v T

	// Tier 1: the whole text is valid JSON.
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}

	// Tier 2: JSON embedded in prose.
	span, err := ExtractObject(text)
	if err == nil {
		if err := json.Unmarshal([]byte(span), &v); err == nil {
			return v, nil
		}
	} else {
		span = text
	}

	// Tier 3: syntactic repair.
	slog.Debug("structured: direct parse failed, repairing", "len", len(span))
	if fixed, err := jsonrepair.JSONRepair(span); err == nil {
		if err := json.Unmarshal([]byte(fixed), &v); err == nil {
			return v, nil
		}
	}

	// Tier 4: corrective generation.
	if d.Fixer == nil {
		return v, &UnrecoverableParseError{Text: text, Err: errors.New("repair failed and no fixer configured")}
	}
	slog.Debug("structured: repair failed, invoking fixer")
	out, err := d.Fixer.Fix(ctx, span)
	if err != nil {
		return v, &UnrecoverableParseError{Text: text, Err: fmt.Errorf("fixer: %w", err)}
	}
	fixedSpan, err := ExtractObject(out)
	if err != nil {
		return v, &UnrecoverableParseError{Text: text, Err: err}
	}
	if err := json.Unmarshal([]byte(fixedSpan), &v); err != nil {
		return v, &UnrecoverableParseError{Text: text, Err: err}
	}
	return v, nil
}
