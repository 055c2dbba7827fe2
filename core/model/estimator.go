// Package model defines the interfaces shared by tabml estimators and the
// helpers they use for fitted state, hyperparameters and persistence.
package model

import "gonum.org/v1/gonum/mat"

// Fitter is implemented by models that learn from a feature matrix and targets.
type Fitter interface {
	// Fit trains the model on X (n_samples x n_features) and y (n_samples x 1).
	Fit(X, y mat.Matrix) error
}

// Predictor is implemented by fitted models that produce predictions.
type Predictor interface {
	// Predict returns an n_samples x 1 matrix of predictions.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is a supervised model.
type Estimator interface {
	Fitter
	Predictor
}

// ProbabilisticClassifier is a classifier that returns per-class probabilities.
// Columns of PredictProba follow the sorted class labels.
type ProbabilisticClassifier interface {
	Estimator
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// ClassLister is implemented by fitted classifiers; labels are sorted.
type ClassLister interface {
	Classes() []float64
}

// FeatureImportancer exposes impurity or gain based feature importances.
type FeatureImportancer interface {
	GetFeatureImportances() []float64
}

// IncrementalLearner is implemented by models that support partial_fit.
type IncrementalLearner interface {
	PartialFit(X, y mat.Matrix, classes []int) error
}
