// Package chain executes ordered filter chains over base sample artifacts,
// reusing content-addressed intermediate outputs where they exist.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tidycorpus/runtime/pkg/corpus"
)

// canonicalStep fixes the serialization used for hashing: field order is
// fixed by the struct, and encoding/json sorts the parameter map keys.
// Changing any of this invalidates every existing cached artifact.
type canonicalStep struct {
	Filter     string            `json:"filter"`
	Language   string            `json:"language,omitempty"`
	Parameters map[string]string `json:"parameters"`
}

// StepHash extends the cumulative chain hash with one step. The hash of a
// chain prefix depends on every preceding step's identity, language, and
// parameter values, in order; prev is empty for the first step. A nil
// parameter map hashes identically to an empty one.
func StepHash(prev string, step corpus.FilterStep) string {
	params := step.Parameters
	if params == nil {
		params = map[string]string{}
	}
	payload, err := json.Marshal(canonicalStep{
		Filter:     step.Filter,
		Language:   step.Language,
		Parameters: params,
	})
	if err != nil {
		// Marshaling a struct of strings and a string map cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(append([]byte(prev), payload...))
	return hex.EncodeToString(sum[:])
}

// ChainHashes returns the cumulative hash for every prefix of the chain:
// element i covers steps[0..i].
func ChainHashes(steps []corpus.FilterStep) []string {
	hashes := make([]string, len(steps))
	prev := ""
	for i, step := range steps {
		prev = StepHash(prev, step)
		hashes[i] = prev
	}
	return hashes
}
