package ensemble

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/sklearn/tree"
)

type forestSnapshot struct {
	Params             map[string]interface{}
	MaxFeatures        float64
	Estimators         []*tree.DecisionTreeClassifier
	Classes            []float64
	NFeatures          int
	NSamples           int
	FeatureImportances []float64
	Fitted             bool
}

// GobEncode implements gob.GobEncoder so fitted forests can be saved with
// model.SaveModel.
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	nFeatures, nSamples := rf.state.GetDimensions()
	params := rf.GetParams()
	delete(params, "max_features")
	for k, v := range params {
		if v == nil {
			delete(params, k)
		}
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(forestSnapshot{
		Params:             params,
		MaxFeatures:        rf.maxFeatures,
		Estimators:         rf.estimators,
		Classes:            rf.classes_,
		NFeatures:          nFeatures,
		NSamples:           nSamples,
		FeatureImportances: rf.featureImportances_,
		Fitted:             rf.state.IsFitted(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	var s forestSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	*rf = *NewRandomForestClassifier()
	if err := rf.SetParams(s.Params); err != nil {
		return err
	}
	rf.maxFeatures = s.MaxFeatures
	rf.estimators = s.Estimators
	rf.classes_ = s.Classes
	rf.nFeatures_ = s.NFeatures
	rf.featureImportances_ = s.FeatureImportances
	rf.state.SetDimensions(s.NFeatures, s.NSamples)
	if s.Fitted {
		rf.state.SetFitted()
	}
	return nil
}

type boostSnapshot struct {
	Params             map[string]interface{}
	Trees              []BoostTree
	NFeatures          int
	NSamples           int
	FeatureImportances []float64
	Fitted             bool
}

// GobEncode implements gob.GobEncoder.
func (gb *GradientBoostingClassifier) GobEncode() ([]byte, error) {
	nFeatures, nSamples := gb.state.GetDimensions()
	params := gb.GetParams()
	if params["random_state"] == nil {
		delete(params, "random_state")
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(boostSnapshot{
		Params:             params,
		Trees:              gb.trees,
		NFeatures:          nFeatures,
		NSamples:           nSamples,
		FeatureImportances: gb.featureImportances_,
		Fitted:             gb.state.IsFitted(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (gb *GradientBoostingClassifier) GobDecode(data []byte) error {
	var s boostSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	*gb = *NewGradientBoostingClassifier()
	if err := gb.SetParams(s.Params); err != nil {
		return err
	}
	gb.trees = s.Trees
	gb.nFeatures_ = s.NFeatures
	gb.featureImportances_ = s.FeatureImportances
	gb.state.SetDimensions(s.NFeatures, s.NSamples)
	if s.Fitted {
		gb.state.SetFitted()
	}
	return nil
}

var (
	_ model.SKLearnCompatible       = (*RandomForestClassifier)(nil)
	_ model.SKLearnCompatible       = (*GradientBoostingClassifier)(nil)
	_ model.ProbabilisticClassifier = (*RandomForestClassifier)(nil)
	_ model.ProbabilisticClassifier = (*GradientBoostingClassifier)(nil)
	_ model.FeatureImportancer      = (*RandomForestClassifier)(nil)
	_ model.FeatureImportancer      = (*GradientBoostingClassifier)(nil)
)
