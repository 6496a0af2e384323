// Package progress defines the phase events an analysis emits and enforces
// their order.
package progress

import (
	"errors"
	"fmt"
)

type Phase string

const (
	Idle       Phase = "idle"
	Parsing    Phase = "parsing"
	Parsed     Phase = "parsed"
	Scraping   Phase = "scraping"
	Scraped    Phase = "scraped"
	Analyzing  Phase = "analyzing"
	Reasoning  Phase = "reasoning"
	Generating Phase = "generating"
	Scoring    Phase = "scoring"
	Complete   Phase = "complete"
)

// Contact is the payload of Parsed.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Posting is the payload of Scraped.
type Posting struct {
	Title   string `json:"title"`
	Company string `json:"company"`
}

// Text is the payload of Reasoning and Generating: one delta of the stream.
type Text struct {
	Text string `json:"text"`
}

// Update is one progress event. Data is nil, Contact, Posting, Text or a
// *score.Score depending on Phase.
type Update struct {
	Phase Phase `json:"phase"`
	Data  any   `json:"data,omitempty"`
}

// Callback receives updates synchronously, in order.
type Callback func(Update)

// ErrIllegalTransition is returned for an event the state machine does not
// allow from the current phase.
var ErrIllegalTransition = errors.New("illegal progress transition")

var transitions = map[Phase][]Phase{
	Idle:       {Parsing},
	Parsing:    {Parsed},
	Parsed:     {Scraping},
	Scraping:   {Scraped},
	Scraped:    {Analyzing, Reasoning, Generating, Complete},
	Analyzing:  {Scoring, Complete},
	Scoring:    {Scoring, Complete},
	Reasoning:  {Reasoning, Generating, Complete},
	Generating: {Generating, Reasoning, Complete},
}

// Allowed reports whether next may follow current.
func Allowed(current, next Phase) bool {
	for _, p := range transitions[current] {
		if p == next {
			return true
		}
	}
	return false
}

// Emitter delivers updates to at most one callback and tracks the phase.
// It is not safe for concurrent use; a single invocation owns it.
type Emitter struct {
	callback Callback
	current  Phase
}

// NewEmitter returns an emitter in the Idle phase. callback may be nil.
func NewEmitter(callback Callback) *Emitter {
	return &Emitter{callback: callback, current: Idle}
}

// Phase returns the last phase emitted.
func (e *Emitter) Phase() Phase {
	return e.current
}

// Emit validates the transition and delivers the update. Nothing is delivered
// after Complete.
func (e *Emitter) Emit(u Update) error {
	if !Allowed(e.current, u.Phase) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, e.current, u.Phase)
	}

	e.current = u.Phase
	if e.callback != nil {
		e.callback(u)
	}
	return nil
}
