package registry

import "github.com/tidycorpus/runtime/pkg/corpus"

// Builtins returns the declarative table of filters every runtime carries.
//
// Command argv entries may reference step parameters as $NAME tokens; the
// executor expands them and additionally exports every parameter into the
// process environment. There is no shell involved at any point.
func Builtins() []corpus.FilterDefinition {
	return []corpus.FilterDefinition{
		{
			Name:        "remove-empty-lines",
			Kind:        corpus.KindBilingual,
			Description: "Drop records where any language field is blank",
			Expression:  `all(fields, trim(#) != "")`,
			Parameters:  []string{},
		},
		{
			Name:        "clean-parallel",
			Kind:        corpus.KindBilingual,
			Description: "Length-ratio and noise cleanup for a language pair",
			Command:     []string{"filters/clean_parallel.py", "-l1", "$LANG1", "-l2", "$LANG2"},
			Parameters:  []string{"LANG1", "LANG2"},
		},
		{
			Name:        "fix-elitr-eca",
			Kind:        corpus.KindMonolingual,
			Description: "Repair mojibake specific to the ELITR ECA corpus",
			Command:     []string{"filters/fix-elitr-eca.py"},
			Parameters:  []string{},
		},
	}
}
