package errhandling

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestChainErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ChainError
		want []string
	}{
		{
			name: "unknown filter",
			err:  NewUnknownFilter(2, "nope"),
			want: []string{"unknown_filter", "step 2", "nope"},
		},
		{
			name: "invalid parameters missing and extra",
			err:  NewInvalidParameters(0, "clean-parallel", []string{"LANG1"}, []string{"BOGUS"}),
			want: []string{"missing parameters: LANG1", "not supported by the filter: BOGUS"},
		},
		{
			name: "process failure carries stage",
			err:  NewProcessFailure(1, "fix-elitr-eca", StageFilter, errors.New("exit status 2")),
			want: []string{"process_failure", "step 1", "fix-elitr-eca", "[filter stage]", "exit status 2"},
		},
		{
			name: "missing dataset has no step index",
			err:  NewMissingDataset("ghost"),
			want: []string{"missing_dataset", `"ghost"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want substring %q", msg, want)
				}
			}
		})
	}
}

func TestMissingDatasetOmitsStepIndex(t *testing.T) {
	msg := NewMissingDataset("ghost").Error()
	if strings.Contains(msg, "step") {
		t.Errorf("missing dataset error should not mention a step: %q", msg)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewProcessFailure(0, "f", StageCompress, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	// Wrapping the ChainError again must keep it reachable via errors.As
	wrapped := fmt.Errorf("executing chain: %w", err)
	var ce *ChainError
	if !errors.As(wrapped, &ce) {
		t.Fatal("errors.As should find the ChainError through wrapping")
	}
	if ce.Stage != StageCompress {
		t.Errorf("Stage = %q, want %q", ce.Stage, StageCompress)
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NewTimeout(3, "slow", nil)); got != KindTimeout {
		t.Errorf("KindOf = %q, want %q", got, KindTimeout)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", got)
	}
}

func TestClassificationPredicates(t *testing.T) {
	if !IsValidation(NewInvalidLanguage(0, "f", "language required")) {
		t.Error("InvalidLanguage should classify as validation")
	}
	if IsValidation(NewCacheIO("write", nil)) {
		t.Error("CacheIO should not classify as validation")
	}
	if !IsMissingResource(NewMissingColumn("toy", "de")) {
		t.Error("MissingColumn should classify as missing resource")
	}
	if IsMissingResource(NewUnknownFilter(0, "f")) {
		t.Error("UnknownFilter should not classify as missing resource")
	}
}
