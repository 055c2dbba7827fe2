package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

func TestAccuracy(t *testing.T) {
	got, err := Accuracy(vec(0, 1, 1, 0), vec(0, 1, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.75 {
		t.Errorf("Accuracy = %v, want 0.75", got)
	}

	if _, err := Accuracy(vec(0, 1), vec(0)); err == nil {
		t.Error("expected dimension error")
	}
	if _, err := Accuracy(nil, vec(1)); !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		scores  []float64
		want    float64
		wantErr bool
	}{
		{"separated", []float64{0, 0, 1, 1}, []float64{0.1, 0.3, 0.6, 0.95}, 1, false},
		{"reversed", []float64{1, 1, 0, 0}, []float64{0.1, 0.3, 0.6, 0.95}, 0, false},
		// 0.6 ties one negative and counts half.
		{"ties", []float64{0, 0, 1, 1, 1}, []float64{0.2, 0.6, 0.6, 0.9, 0.4}, 0.75, false},
		{"constant scores", []float64{0, 1, 1, 0}, []float64{0.5, 0.5, 0.5, 0.5}, 0.5, false},
		{"only claims", []float64{1, 1, 1}, []float64{0.2, 0.5, 0.7}, 0.5, false},
		{"three classes", []float64{0, 1, 2}, []float64{0.2, 0.5, 0.7}, 0, true},
		{"length mismatch", []float64{0, 1}, []float64{0.2}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(vec(tt.yTrue...), vec(tt.scores...))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("AUC = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAUCMatrixUsesFirstColumn(t *testing.T) {
	y := mat.NewDense(4, 1, []float64{0, 1, 0, 1})
	scores := mat.NewDense(4, 2, []float64{
		0.1, 9,
		0.8, 9,
		0.3, 9,
		0.7, 9,
	})
	got, err := AUCMatrix(y, scores)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("AUCMatrix = %v, want 1", got)
	}
	if _, err := AUCMatrix(&mat.Dense{}, scores); !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
}

func TestBinaryLogLoss(t *testing.T) {
	got, err := BinaryLogLoss(vec(1, 0), vec(0.8, 0.2))
	if err != nil {
		t.Fatal(err)
	}
	if want := -math.Log(0.8); math.Abs(got-want) > 1e-12 {
		t.Errorf("BinaryLogLoss = %v, want %v", got, want)
	}

	// A confident wrong prediction is clipped rather than infinite.
	got, err = BinaryLogLoss(vec(1), vec(0))
	if err != nil {
		t.Fatal(err)
	}
	if want := -math.Log(1e-15); math.Abs(got-want) > 1e-9 {
		t.Errorf("clipped loss = %v, want %v", got, want)
	}

	if _, err := BinaryLogLoss(vec(0, 3), vec(0.1, 0.9)); err == nil {
		t.Error("expected error for non-binary labels")
	}
}

func BenchmarkAUC(b *testing.B) {
	const n = 5000
	yTrue := mat.NewVecDense(n, nil)
	scores := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, float64(i%2))
		scores.SetVec(i, float64((i*7919)%n)/n)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yTrue, scores)
	}
}
