package embed

import (
	"math"
	"testing"
)

func TestEmbedDeterministic(t *testing.T) {
	e := HashEmbedder{}

	a := e.Embed("STARBUCKS COFFEE 0417")
	b := e.Embed("STARBUCKS COFFEE 0417")

	if len(a) != Dimensions {
		t.Fatalf("vector length = %d, want %d", len(a), Dimensions)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at index %d: %f != %f", i, a[i], b[i])
		}
	}
}

func TestEmbedUnitNorm(t *testing.T) {
	e := HashEmbedder{}

	for _, text := range []string{"SHELL OIL", "ADOBE SUBSCRIPTION", "X"} {
		vec := e.Embed(text)
		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if math.Abs(norm-1.0) > 1e-9 {
			t.Errorf("Embed(%q) norm = %f, want 1.0", text, norm)
		}
	}
}

func TestEmbedDistinctTexts(t *testing.T) {
	e := HashEmbedder{}

	a := e.Embed("UBER TRIP")
	b := e.Embed("DELTA AIRLINES")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 0}, b: []float64{1, 0}, want: 1.0},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: 0.0},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0.5},
		{name: "length mismatch", a: []float64{1, 0}, b: []float64{1}, want: 0},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityRange(t *testing.T) {
	e := HashEmbedder{}
	texts := []string{"A", "B", "STAPLES", "SHELL", "COFFEE SHOP"}

	for _, x := range texts {
		for _, y := range texts {
			s := CosineSimilarity(e.Embed(x), e.Embed(y))
			if s < 0 || s > 1 {
				t.Errorf("similarity(%q,%q) = %f out of [0,1]", x, y, s)
			}
		}
	}
}
