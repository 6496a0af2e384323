package ai

import (
	"encoding/json"
	"iter"
	"strings"
)

// ObjectStream assembles the text chunks of a JSON answer into Partial
// snapshots. A snapshot is yielded only when it differs from the previous
// one; the stream ends with a Final snapshot or ErrIncompleteObject.
func ObjectStream(chunks iter.Seq2[string, error]) iter.Seq2[Partial, error] {
	return func(yield func(Partial, error) bool) {
		var (
			buf  strings.Builder
			last string
		)

		for chunk, err := range chunks {
			if err != nil {
				yield(Partial{}, err)
				return
			}
			buf.WriteString(chunk)

			snapshot, ok := CompletePartialJSON(buf.String())
			if !ok || snapshot == last {
				continue
			}
			last = snapshot
			if !yield(Partial{JSON: json.RawMessage(snapshot)}, nil) {
				return
			}
		}

		final := CleanJSONBlock(buf.String())
		if !json.Valid([]byte(final)) {
			yield(Partial{}, ErrIncompleteObject)
			return
		}
		yield(Partial{JSON: json.RawMessage(final), Final: true}, nil)
	}
}
