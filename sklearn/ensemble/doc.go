// Package ensemble provides tree ensembles for binary and multiclass
// classification: a bagged RandomForestClassifier built on
// sklearn/tree, and a second-order GradientBoostingClassifier using the
// binary:logistic objective.
//
// Both models follow the scikit-learn estimator surface (Fit, Predict,
// PredictProba, GetParams, SetParams, Clone) so they can be tuned with
// model_selection.GridSearchCV.
package ensemble
