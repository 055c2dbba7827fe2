package preprocessing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// tokenPattern matches runs of two or more Unicode letters, digits or
// underscores, like scikit-learn's default token_pattern. RE2's \w and \b
// are ASCII-only, so the classes are spelled out.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// CountVectorizer converts documents into a matrix of n-gram counts.
// Stop words are removed before n-grams are formed.
type CountVectorizer struct {
	state *model.StateManager

	// NGramRange is the inclusive range of n-gram sizes.
	NGramRange [2]int
	// MaxFeatures keeps the most frequent terms across the corpus. Ties are
	// broken alphabetically. Zero keeps every term.
	MaxFeatures int
	// StopWords is "english" or empty.
	StopWords string
	Lowercase bool

	// Vocabulary maps a term to its column; columns are in sorted term order.
	Vocabulary map[string]int
	terms      []string
}

// VectorizerOption configures a CountVectorizer.
type VectorizerOption func(*CountVectorizer)

// WithNGramRange sets the inclusive n-gram range.
func WithNGramRange(lo, hi int) VectorizerOption {
	return func(v *CountVectorizer) { v.NGramRange = [2]int{lo, hi} }
}

// WithVocabMaxFeatures limits the vocabulary size.
func WithVocabMaxFeatures(n int) VectorizerOption {
	return func(v *CountVectorizer) { v.MaxFeatures = n }
}

// WithStopWords sets the stop word list; only "english" is built in.
func WithStopWords(name string) VectorizerOption {
	return func(v *CountVectorizer) { v.StopWords = name }
}

// WithLowercase toggles lowercasing before tokenisation.
func WithLowercase(on bool) VectorizerOption {
	return func(v *CountVectorizer) { v.Lowercase = on }
}

// NewCountVectorizer creates a CountVectorizer with unigrams, lowercasing
// and no stop words.
func NewCountVectorizer(opts ...VectorizerOption) *CountVectorizer {
	v := &CountVectorizer{
		state:      model.NewStateManager(),
		NGramRange: [2]int{1, 1},
		Lowercase:  true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *CountVectorizer) validate() error {
	if v.NGramRange[0] < 1 || v.NGramRange[0] > v.NGramRange[1] {
		return errors.NewValidationError("ngram_range", "must satisfy 1 <= min_n <= max_n", v.NGramRange)
	}
	if v.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be non-negative", v.MaxFeatures)
	}
	if v.StopWords != "" && v.StopWords != "english" {
		return errors.NewValidationError("stop_words", "only \"english\" is supported", v.StopWords)
	}
	return nil
}

// analyze returns the n-grams of doc in order of appearance.
func (v *CountVectorizer) analyze(doc string) []string {
	if v.Lowercase {
		doc = strings.ToLower(doc)
	}
	raw := tokenPattern.FindAllString(doc, -1)
	tokens := raw[:0]
	for _, t := range raw {
		if v.StopWords == "english" {
			if _, stop := englishStopWords[t]; stop {
				continue
			}
		}
		tokens = append(tokens, t)
	}
	var grams []string
	for n := v.NGramRange[0]; n <= v.NGramRange[1]; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// Fit builds the vocabulary from docs.
func (v *CountVectorizer) Fit(docs []string) error {
	if err := v.validate(); err != nil {
		return err
	}
	if len(docs) == 0 {
		return errors.NewModelError("CountVectorizer.Fit", "empty data", errors.ErrEmptyData)
	}
	freq := make(map[string]int)
	for _, doc := range docs {
		for _, g := range v.analyze(doc) {
			freq[g]++
		}
	}
	if len(freq) == 0 {
		return errors.NewValueError("CountVectorizer.Fit", "empty vocabulary; perhaps the documents only contain stop words")
	}
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	if v.MaxFeatures > 0 && v.MaxFeatures < len(terms) {
		sort.Slice(terms, func(a, b int) bool {
			if freq[terms[a]] != freq[terms[b]] {
				return freq[terms[a]] > freq[terms[b]]
			}
			return terms[a] < terms[b]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)
	v.terms = terms
	v.Vocabulary = make(map[string]int, len(terms))
	for i, t := range terms {
		v.Vocabulary[t] = i
	}
	v.state.SetDimensions(len(terms), len(docs))
	v.state.SetFitted()
	return nil
}

// Transform counts the vocabulary terms of every document. Terms outside
// the vocabulary are ignored.
func (v *CountVectorizer) Transform(docs []string) (*mat.Dense, error) {
	if err := v.state.RequireFitted("CountVectorizer", "Transform"); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.NewModelError("CountVectorizer.Transform", "empty data", errors.ErrEmptyData)
	}
	out := mat.NewDense(len(docs), len(v.terms), nil)
	for i, doc := range docs {
		for _, g := range v.analyze(doc) {
			if j, ok := v.Vocabulary[g]; ok {
				out.Set(i, j, out.At(i, j)+1)
			}
		}
	}
	return out, nil
}

// FitTransform fits on docs and transforms them.
func (v *CountVectorizer) FitTransform(docs []string) (*mat.Dense, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

// FeatureNames returns the vocabulary in column order.
func (v *CountVectorizer) FeatureNames() []string {
	return append([]string(nil), v.terms...)
}

// IsFitted reports whether Fit has completed.
func (v *CountVectorizer) IsFitted() bool { return v.state.IsFitted() }

func (v *CountVectorizer) String() string {
	return fmt.Sprintf("CountVectorizer(ngram_range=(%d, %d), max_features=%d, stop_words=%q)",
		v.NGramRange[0], v.NGramRange[1], v.MaxFeatures, v.StopWords)
}
