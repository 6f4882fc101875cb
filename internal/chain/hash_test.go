package chain

import (
	"testing"

	"github.com/tidycorpus/runtime/pkg/corpus"
)

func TestStepHashDeterministic(t *testing.T) {
	step := corpus.FilterStep{
		Filter:     "clean-parallel",
		Parameters: map[string]string{"LANG1": "en", "LANG2": "fr"},
	}

	first := StepHash("", step)
	second := StepHash("", step)
	if first != second {
		t.Errorf("identical steps hashed differently: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(first))
	}
}

func TestStepHashNilParametersEqualsEmpty(t *testing.T) {
	withNil := corpus.FilterStep{Filter: "remove-empty-lines"}
	withEmpty := corpus.FilterStep{Filter: "remove-empty-lines", Parameters: map[string]string{}}

	if nilHash, emptyHash := StepHash("", withNil), StepHash("", withEmpty); nilHash != emptyHash {
		t.Errorf("nil and empty parameter maps hashed differently: %s vs %s", nilHash, emptyHash)
	}
}

func TestStepHashSensitivity(t *testing.T) {
	base := corpus.FilterStep{
		Filter:     "clean-parallel",
		Parameters: map[string]string{"LANG1": "en", "LANG2": "fr"},
	}
	baseHash := StepHash("", base)

	tests := []struct {
		name string
		step corpus.FilterStep
	}{
		{
			name: "different filter",
			step: corpus.FilterStep{Filter: "other", Parameters: base.Parameters},
		},
		{
			name: "different parameter value",
			step: corpus.FilterStep{
				Filter:     base.Filter,
				Parameters: map[string]string{"LANG1": "en", "LANG2": "de"},
			},
		},
		{
			name: "language set",
			step: corpus.FilterStep{Filter: base.Filter, Parameters: base.Parameters, Language: "en"},
		},
		{
			name: "different previous hash",
			step: base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := ""
			if tt.name == "different previous hash" {
				prev = baseHash
			}
			if got := StepHash(prev, tt.step); got == baseHash {
				t.Error("expected a different hash")
			}
		})
	}
}

func TestChainHashesOrderSensitive(t *testing.T) {
	a := corpus.FilterStep{Filter: "first"}
	b := corpus.FilterStep{Filter: "second"}

	forward := ChainHashes([]corpus.FilterStep{a, b})
	reversed := ChainHashes([]corpus.FilterStep{b, a})

	if forward[1] == reversed[1] {
		t.Error("reordered chains produced the same final hash")
	}
}

func TestChainHashesArePrefixHashes(t *testing.T) {
	steps := []corpus.FilterStep{
		{Filter: "one"},
		{Filter: "two", Parameters: map[string]string{"N": "3"}},
		{Filter: "three", Language: "en"},
	}

	hashes := ChainHashes(steps)
	if len(hashes) != len(steps) {
		t.Fatalf("expected %d hashes, got %d", len(steps), len(hashes))
	}

	prev := ""
	for i, step := range steps {
		prev = StepHash(prev, step)
		if hashes[i] != prev {
			t.Errorf("hash %d = %s, expected %s", i, hashes[i], prev)
		}
	}
}

func TestChainHashesSharedPrefix(t *testing.T) {
	shared := corpus.FilterStep{Filter: "shared"}
	first := ChainHashes([]corpus.FilterStep{shared, {Filter: "a"}})
	second := ChainHashes([]corpus.FilterStep{shared, {Filter: "b"}})

	if first[0] != second[0] {
		t.Error("chains with the same first step disagree on the prefix hash")
	}
	if first[1] == second[1] {
		t.Error("chains diverging at step 1 agree on the final hash")
	}
}
