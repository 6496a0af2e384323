// Package ai defines the provider-neutral completion contract used by the
// analysis engine and the helpers shared by provider implementations.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultMaxRetries is the number of transport retries a provider makes
// before giving up on a single call.
const DefaultMaxRetries = 2

// ErrIncompleteObject is yielded when an object stream ends before the model
// produced a complete JSON document.
var ErrIncompleteObject = errors.New("object stream ended without a complete JSON document")

// Request is one completion call. Schema is only used by object calls.
type Request struct {
	System     string
	Prompt     string
	Model      string
	Verbosity  string
	Reasoning  string
	Schema     json.RawMessage
	SchemaName string
}

type DeltaKind int

const (
	DeltaText DeltaKind = iota
	DeltaReasoning
)

func (k DeltaKind) String() string {
	if k == DeltaReasoning {
		return "reasoning"
	}
	return "text"
}

// Delta is one chunk of a token stream.
type Delta struct {
	Kind DeltaKind
	Text string
}

// Partial is a snapshot of an object being streamed. JSON is always a valid
// document; until Final is set it may be missing trailing fields.
type Partial struct {
	JSON  json.RawMessage
	Final bool
}

// Completer is implemented by every AI provider.
type Completer interface {
	Provider() string
	// GenerateText returns the whole answer of a single-shot call.
	GenerateText(ctx context.Context, req Request) (string, error)
	// GenerateObject returns a single JSON document.
	GenerateObject(ctx context.Context, req Request) (json.RawMessage, error)
	// StreamObject yields progressively more complete snapshots of a JSON
	// document, ending with a Final one.
	StreamObject(ctx context.Context, req Request) iter.Seq2[Partial, error]
	// StreamText yields interleaved reasoning and answer deltas in arrival order.
	StreamText(ctx context.Context, req Request) iter.Seq2[Delta, error]
}
