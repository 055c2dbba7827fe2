package log

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestTestLoggerLevels(t *testing.T) {
	logger, buffer := NewTestLogger(LevelInfo)

	logger.Debug("candidate scored", CandidateKey, 3)
	logger.Info("dataset loaded", DatasetKey, "taxi", SamplesKey, 22699)
	logger.Warn("undefined metric", ScoreKey, 0.0)
	logger.Error("walkthrough failed", "error", errors.New("missing column"))

	if buffer.Len() == 0 {
		t.Fatal("expected output")
	}
	if logger.ContainsMessage("candidate scored") {
		t.Error("debug entry written at info level")
	}
	for _, msg := range []string{"dataset loaded", "undefined metric", "walkthrough failed"} {
		if !logger.ContainsMessage(msg) {
			t.Errorf("message %q not found", msg)
		}
	}
	if !logger.ContainsField(SamplesKey, 22699.0) {
		t.Error("samples field not found")
	}
	if !logger.ContainsField("error", "missing column") {
		t.Error("error not stored as message")
	}
	if logger.Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be disabled")
	}
}

func TestTestLoggerWith(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	search := logger.With(RunIDKey, "run-1", OperationKey, OperationSearch)
	search.Debug("fold scored", FoldKey, 2, ScoreKey, 0.75)
	logger.Info("unrelated")

	entries, err := logger.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	want := map[string]interface{}{
		"level":      "DEBUG",
		RunIDKey:     "run-1",
		OperationKey: OperationSearch,
		FoldKey:      2.0,
		ScoreKey:     0.75,
	}
	for k, v := range want {
		if entries[0][k] != v {
			t.Errorf("%s = %v, want %v", k, entries[0][k], v)
		}
	}
	if _, ok := entries[1][RunIDKey]; ok {
		t.Error("parent logger picked up child fields")
	}

	logger.Clear()
	if logger.String() != "" {
		t.Error("Clear left entries behind")
	}
}

func TestTestLoggerConcurrent(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				logger.With(CandidateKey, g).Info("candidate done", FoldKey, i)
			}
		}()
	}
	wg.Wait()

	entries, err := logger.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 20 {
		t.Errorf("expected 20 entries, got %d", len(entries))
	}
}

func BenchmarkTestLogger(b *testing.B) {
	logger, _ := NewTestLogger(LevelInfo)
	search := logger.With(ModelNameKey, "RandomForestClassifier")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		search.Info("fold scored", FoldKey, i, SamplesKey, 1000)
	}
}
