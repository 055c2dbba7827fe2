package naive_bayes

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/pkg/log"
)

// GaussianNB models each feature as normally distributed within a class.
type GaussianNB struct {
	state *model.StateManager

	varSmoothing float64

	classes    []float64
	classPrior []float64
	theta      *mat.Dense // per-class feature means
	variance   *mat.Dense // per-class feature variances plus epsilon
	epsilon    float64
}

// GaussianOption configures a GaussianNB.
type GaussianOption func(*GaussianNB)

// WithVarSmoothing sets the fraction of the largest feature variance added
// to every variance for stability.
func WithVarSmoothing(v float64) GaussianOption {
	return func(nb *GaussianNB) { nb.varSmoothing = v }
}

// NewGaussianNB creates a GaussianNB with var_smoothing=1e-9.
func NewGaussianNB(opts ...GaussianOption) *GaussianNB {
	nb := &GaussianNB{state: model.NewStateManager(), varSmoothing: 1e-9}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit estimates per-class means, population variances and priors.
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	rows, cols, err := checkXY("GaussianNB.Fit", X, y)
	if err != nil {
		return err
	}
	if err := errors.CheckMatrix("GaussianNB.Fit", X, rows, cols, -1); err != nil {
		return err
	}
	nb.state.Reset()

	nb.classes = uniqueLabels(y)
	index := labelIndex(nb.classes)
	k := len(nb.classes)

	members := make([][]int, k)
	for i := 0; i < rows; i++ {
		c := index[y.At(i, 0)]
		members[c] = append(members[c], i)
	}

	maxVar := 0.0
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		_, v := stat.PopMeanVariance(col, nil)
		maxVar = math.Max(maxVar, v)
	}
	nb.epsilon = nb.varSmoothing * maxVar

	nb.theta = mat.NewDense(k, cols, nil)
	nb.variance = mat.NewDense(k, cols, nil)
	nb.classPrior = make([]float64, k)
	for c, idx := range members {
		nb.classPrior[c] = float64(len(idx)) / float64(rows)
		vals := make([]float64, len(idx))
		for j := 0; j < cols; j++ {
			for n, i := range idx {
				vals[n] = X.At(i, j)
			}
			m, v := stat.PopMeanVariance(vals, nil)
			nb.theta.Set(c, j, m)
			nb.variance.Set(c, j, v+nb.epsilon)
		}
	}

	nb.state.SetDimensions(cols, rows)
	nb.state.SetFitted()
	log.GetLogger().Debug("fit completed",
		log.ModelNameKey, "GaussianNB",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	return nil
}

func (nb *GaussianNB) jll(X mat.Matrix, method string) (*mat.Dense, error) {
	if err := nb.state.RequireFitted("GaussianNB", method); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := nb.state.RequireFeatures("GaussianNB."+method, cols); err != nil {
		return nil, err
	}
	k := len(nb.classes)
	out := mat.NewDense(rows, k, nil)
	for c := 0; c < k; c++ {
		var logNorm float64
		for j := 0; j < cols; j++ {
			logNorm += math.Log(2 * math.Pi * nb.variance.At(c, j))
		}
		prior := errors.StabilizeLog(nb.classPrior[c])
		for i := 0; i < rows; i++ {
			var sq float64
			for j := 0; j < cols; j++ {
				d := X.At(i, j) - nb.theta.At(c, j)
				sq += d * d / nb.variance.At(c, j)
			}
			out.Set(i, c, prior-0.5*logNorm-0.5*sq)
		}
	}
	return out, nil
}

// Predict returns the most probable class for each row.
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jll(X, "Predict")
	if err != nil {
		return nil, err
	}
	return predictFrom(jll, nb.classes), nil
}

// PredictProba returns class probabilities; columns follow Classes().
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jll(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	return probaFrom(jll), nil
}

// PredictLogProba returns log class probabilities.
func (nb *GaussianNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jll(X, "PredictLogProba")
	if err != nil {
		return nil, err
	}
	return logProbaFrom(jll), nil
}

// Score returns the mean accuracy on X and y.
func (nb *GaussianNB) Score(X, y mat.Matrix) (float64, error) {
	pred, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy(pred, y)
}

// Classes returns the class labels in column order.
func (nb *GaussianNB) Classes() []float64 {
	return append([]float64(nil), nb.classes...)
}

// GetParams returns var_smoothing.
func (nb *GaussianNB) GetParams() map[string]interface{} {
	return map[string]interface{}{"var_smoothing": nb.varSmoothing}
}

// SetParams updates var_smoothing.
func (nb *GaussianNB) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		if key != "var_smoothing" {
			return errors.NewValidationError(key, "unknown parameter for GaussianNB", value)
		}
		v, err := model.ParamFloat(key, value)
		if err != nil {
			return err
		}
		nb.varSmoothing = v
	}
	return nil
}

// Clone returns an unfitted copy.
func (nb *GaussianNB) Clone() model.SKLearnCompatible {
	return NewGaussianNB(WithVarSmoothing(nb.varSmoothing))
}
