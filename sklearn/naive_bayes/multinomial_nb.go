package naive_bayes

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/pkg/log"
)

const minAlpha = 1e-10

// MultinomialNB is naive Bayes for non-negative count features such as the
// output of a CountVectorizer.
type MultinomialNB struct {
	state *model.StateManager

	alpha    float64
	fitPrior bool

	classes        []float64
	classCount     []float64
	featureCount   *mat.Dense // n_classes x n_features
	featureLogProb *mat.Dense
	classLogPrior  []float64
	nSamplesSeen   int
}

// MultinomialOption configures a MultinomialNB.
type MultinomialOption func(*MultinomialNB)

// WithAlpha sets the additive (Laplace/Lidstone) smoothing parameter.
// Values below 1e-10 are raised to 1e-10.
func WithAlpha(alpha float64) MultinomialOption {
	return func(nb *MultinomialNB) { nb.alpha = alpha }
}

// WithFitPrior controls whether class priors are learned or uniform.
func WithFitPrior(fit bool) MultinomialOption {
	return func(nb *MultinomialNB) { nb.fitPrior = fit }
}

// NewMultinomialNB creates a MultinomialNB with alpha=1 and learned priors.
func NewMultinomialNB(opts ...MultinomialOption) *MultinomialNB {
	nb := &MultinomialNB{state: model.NewStateManager(), alpha: 1.0, fitPrior: true}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit learns class and feature counts from scratch.
func (nb *MultinomialNB) Fit(X, y mat.Matrix) error {
	if _, _, err := checkXY("MultinomialNB.Fit", X, y); err != nil {
		return err
	}
	nb.reset()
	return nb.partialFit(X, y, uniqueLabels(y))
}

// PartialFit updates the counts with one batch. classes must list every
// label on the first call and may be nil afterwards.
func (nb *MultinomialNB) PartialFit(X, y mat.Matrix, classes []int) error {
	if _, _, err := checkXY("MultinomialNB.PartialFit", X, y); err != nil {
		return err
	}
	var cls []float64
	if nb.classes == nil {
		if classes == nil {
			return errors.NewValueError("MultinomialNB.PartialFit", "classes must be passed on the first call")
		}
		for _, c := range classes {
			cls = append(cls, float64(c))
		}
	}
	return nb.partialFit(X, y, cls)
}

func (nb *MultinomialNB) partialFit(X, y mat.Matrix, classes []float64) error {
	rows, cols := X.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if X.At(i, j) < 0 {
				return errors.NewValueError("MultinomialNB.Fit", "negative values in data passed to MultinomialNB (input X)")
			}
		}
	}

	if nb.classes == nil {
		nb.classes = classes
		nb.classCount = make([]float64, len(classes))
		nb.featureCount = mat.NewDense(len(classes), cols, nil)
	} else if _, c := nb.featureCount.Dims(); c != cols {
		return errors.NewDimensionError("MultinomialNB.PartialFit", c, cols, 1)
	}

	index := labelIndex(nb.classes)
	for i := 0; i < rows; i++ {
		k, ok := index[y.At(i, 0)]
		if !ok {
			return unknownLabel("MultinomialNB.Fit", y.At(i, 0), nb.classes)
		}
		nb.classCount[k]++
		for j := 0; j < cols; j++ {
			nb.featureCount.Set(k, j, nb.featureCount.At(k, j)+X.At(i, j))
		}
	}
	nb.nSamplesSeen += rows
	nb.updateLogProbs()
	nb.state.SetDimensions(cols, nb.nSamplesSeen)
	nb.state.SetFitted()

	log.GetLogger().Debug("naive bayes updated",
		log.ModelNameKey, "MultinomialNB",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	return nil
}

func (nb *MultinomialNB) updateLogProbs() {
	alpha := math.Max(nb.alpha, minAlpha)
	k, cols := nb.featureCount.Dims()
	nb.featureLogProb = mat.NewDense(k, cols, nil)
	for c := 0; c < k; c++ {
		total := alpha * float64(cols)
		for j := 0; j < cols; j++ {
			total += nb.featureCount.At(c, j)
		}
		for j := 0; j < cols; j++ {
			nb.featureLogProb.Set(c, j, math.Log(nb.featureCount.At(c, j)+alpha)-math.Log(total))
		}
	}

	nb.classLogPrior = make([]float64, k)
	var n float64
	for _, cnt := range nb.classCount {
		n += cnt
	}
	for c := range nb.classLogPrior {
		if nb.fitPrior {
			nb.classLogPrior[c] = errors.StabilizeLog(nb.classCount[c]) - math.Log(n)
		} else {
			nb.classLogPrior[c] = -math.Log(float64(k))
		}
	}
}

func (nb *MultinomialNB) jll(X mat.Matrix, method string) (*mat.Dense, error) {
	if err := nb.state.RequireFitted("MultinomialNB", method); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := nb.state.RequireFeatures("MultinomialNB."+method, cols); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Mul(X, nb.featureLogProb.T())
	rows, k := out.Dims()
	for i := 0; i < rows; i++ {
		for c := 0; c < k; c++ {
			out.Set(i, c, out.At(i, c)+nb.classLogPrior[c])
		}
	}
	return &out, nil
}

// Predict returns the most probable class for each row.
func (nb *MultinomialNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jll(X, "Predict")
	if err != nil {
		return nil, err
	}
	return predictFrom(jll, nb.classes), nil
}

// PredictProba returns class probabilities; columns follow Classes().
func (nb *MultinomialNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jll(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	return probaFrom(jll), nil
}

// PredictLogProba returns log class probabilities.
func (nb *MultinomialNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jll(X, "PredictLogProba")
	if err != nil {
		return nil, err
	}
	return logProbaFrom(jll), nil
}

// Score returns the mean accuracy on X and y.
func (nb *MultinomialNB) Score(X, y mat.Matrix) (float64, error) {
	pred, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy(pred, y)
}

// Classes returns the class labels in column order.
func (nb *MultinomialNB) Classes() []float64 {
	return append([]float64(nil), nb.classes...)
}

// NSamplesSeen returns the number of samples seen across Fit and PartialFit calls.
func (nb *MultinomialNB) NSamplesSeen() int {
	return nb.nSamplesSeen
}

// GetParams returns alpha and fit_prior.
func (nb *MultinomialNB) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": nb.alpha, "fit_prior": nb.fitPrior}
}

// SetParams updates alpha and fit_prior.
func (nb *MultinomialNB) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "alpha":
			nb.alpha, err = model.ParamFloat(key, value)
		case "fit_prior":
			nb.fitPrior, err = model.ParamBool(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter for MultinomialNB", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted copy.
func (nb *MultinomialNB) Clone() model.SKLearnCompatible {
	return NewMultinomialNB(WithAlpha(nb.alpha), WithFitPrior(nb.fitPrior))
}

func (nb *MultinomialNB) reset() {
	nb.state.Reset()
	nb.classes = nil
	nb.classCount = nil
	nb.featureCount = nil
	nb.featureLogProb = nil
	nb.classLogPrior = nil
	nb.nSamplesSeen = 0
}
