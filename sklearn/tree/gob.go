package tree

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/tabml/core/model"
)

type snapshot struct {
	Criterion          string
	MaxDepth           int
	MinSamplesSplit    int
	MinSamplesLeaf     int
	MaxFeatures        float64
	RandomState        int64
	Nodes              []Node
	Classes            []float64
	NFeatures          int
	NSamples           int
	FeatureImportances []float64
	Fitted             bool
}

// GobEncode implements gob.GobEncoder so fitted trees can be saved with
// model.SaveModel.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	nFeatures, nSamples := dt.state.GetDimensions()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Criterion:          dt.criterion,
		MaxDepth:           dt.maxDepth,
		MinSamplesSplit:    dt.minSamplesSplit,
		MinSamplesLeaf:     dt.minSamplesLeaf,
		MaxFeatures:        dt.maxFeatures,
		RandomState:        dt.randomState,
		Nodes:              dt.nodes,
		Classes:            dt.classes_,
		NFeatures:          nFeatures,
		NSamples:           nSamples,
		FeatureImportances: dt.featureImportances_,
		Fitted:             dt.state.IsFitted(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	dt.state = model.NewStateManager()
	dt.criterion = s.Criterion
	dt.maxDepth = s.MaxDepth
	dt.minSamplesSplit = s.MinSamplesSplit
	dt.minSamplesLeaf = s.MinSamplesLeaf
	dt.maxFeatures = s.MaxFeatures
	dt.randomState = s.RandomState
	dt.nodes = s.Nodes
	dt.classes_ = s.Classes
	dt.nClasses_ = len(s.Classes)
	dt.nFeatures_ = s.NFeatures
	dt.featureImportances_ = s.FeatureImportances
	dt.state.SetDimensions(s.NFeatures, s.NSamples)
	if s.Fitted {
		dt.state.SetFitted()
	}
	return nil
}
