package tree

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// ExportText renders the fitted tree as indented text, one line per split
// or leaf, in the layout of scikit-learn's export_text. Each line carries
// the node impurity, sample count, weighted class counts and majority class.
// Branches deeper than maxDepth are summarised; maxDepth <= 0 prints all.
// featureNames may be nil, in which case features are named feature_<j>.
func (dt *DecisionTreeClassifier) ExportText(featureNames []string, maxDepth int) (string, error) {
	if err := dt.state.RequireFitted(modelName, "ExportText"); err != nil {
		return "", err
	}
	if featureNames != nil && len(featureNames) != dt.nFeatures_ {
		return "", errors.NewDimensionError(modelName+".ExportText", dt.nFeatures_, len(featureNames), 1)
	}
	name := func(j int) string {
		if featureNames != nil {
			return featureNames[j]
		}
		return fmt.Sprintf("feature_%d", j)
	}

	var b strings.Builder
	var walk func(idx, depth int)
	walk = func(idx, depth int) {
		n := &dt.nodes[idx]
		indent := strings.Repeat("|   ", depth) + "|--- "
		if n.IsLeaf() {
			fmt.Fprintf(&b, "%sclass: %g %s\n", indent, dt.classes_[argmax(n.Value)], dt.nodeSummary(n))
			return
		}
		if maxDepth > 0 && depth >= maxDepth {
			fmt.Fprintf(&b, "%struncated branch of depth %d\n", indent, dt.subtreeDepth(idx))
			return
		}
		fmt.Fprintf(&b, "%s%s <= %.2f %s\n", indent, name(n.Feature), n.Threshold, dt.nodeSummary(n))
		walk(n.Left, depth+1)
		fmt.Fprintf(&b, "%s%s >  %.2f\n", indent, name(n.Feature), n.Threshold)
		walk(n.Right, depth+1)
	}
	walk(0, 0)
	return b.String(), nil
}

func (dt *DecisionTreeClassifier) nodeSummary(n *Node) string {
	counts := make([]string, len(n.Value))
	for k, v := range n.Value {
		counts[k] = fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf("[%s = %.3f, samples = %d, value = [%s], class = %g]",
		dt.criterion, n.Impurity, n.NSamples, strings.Join(counts, ", "), dt.classes_[argmax(n.Value)])
}

func (dt *DecisionTreeClassifier) subtreeDepth(idx int) int {
	n := &dt.nodes[idx]
	if n.IsLeaf() {
		return 0
	}
	l := dt.subtreeDepth(n.Left)
	r := dt.subtreeDepth(n.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}
