// Package tabml runs tabular data exploration and classification
// walkthroughs in Go: summary statistics over CSV datasets, decision trees,
// Naive Bayes baselines, random forests and gradient boosted trees tuned by
// cross-validated grid search.
//
// # Packages
//
//   - dataframe: column-oriented frames with CSV IO, group-by, dummies and
//     date and currency parsing
//   - preprocessing: scalers, one-hot and label encoders, n-gram counting
//   - metrics: classification metrics and reports
//   - sklearn/tree, sklearn/ensemble, sklearn/naive_bayes: classifiers
//   - sklearn/model_selection: train/test splits, stratified k-fold, grid search
//   - report: results tables and evaluations
//   - plot: confusion matrices, histograms and bar charts
//   - internal/workflow: the taxi, unicorn, churn and claims walkthroughs
//   - cmd/tabml: command line entry point
//
// # Quick start
//
//	tabml churn --data-dir ./data --out-dir ./out
//
// or from Go:
//
//	cfg := config.Default()
//	cfg.Data.Dir = "./data"
//	report, err := workflow.Churn(ctx, cfg, log.GetLogger())
//	if err != nil {
//		return err
//	}
//	fmt.Println(report)
//
// Errors carry stack traces through github.com/cockroachdb/errors; use
// errors.As with the types in pkg/errors to inspect them.
package tabml
