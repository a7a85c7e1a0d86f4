package tactic

import (
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestRank_KeepsMaxConfidence(t *testing.T) {
	got := Rank([]Candidate{
		{"simp", 0.2},
		{"simp", 0.9},
		{"simp", 0.5},
	})
	want := []Candidate{{"simp", 0.9}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Rank = %v, want %v", got, want)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	got := Rank([]Candidate{
		{"a", 0.5},
		{"b", 0.7},
		{"c", 0.5},
		{"a", 0.5},
		{"d", 0.5},
	})
	want := []Candidate{{"b", 0.7}, {"a", 0.5}, {"c", 0.5}, {"d", 0.5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Rank = %v, want %v", got, want)
	}
}

func TestRank_NoNormalization(t *testing.T) {
	got := Rank([]Candidate{{"simp", 1}, {"simp ", 1}, {"Simp", 1}})
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct tactics, got %v", got)
	}
}

func TestRank_DoesNotModifyInput(t *testing.T) {
	in := []Candidate{{"a", 0.1}, {"b", 0.9}, {"a", 0.5}}
	orig := append([]Candidate(nil), in...)
	_ = Rank(in)
	if !reflect.DeepEqual(in, orig) {
		t.Fatalf("input modified: %v", in)
	}
}

func TestRank_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	alphabet := []string{"simp", "omega", "ring", "linarith", "exact h", "rfl"}

	for iter := 0; iter < 500; iter++ {
		n := rng.IntN(12)
		in := make([]Candidate, n)
		maxSeen := map[string]float64{}
		for i := range in {
			c := Candidate{
				Tactic:     alphabet[rng.IntN(len(alphabet))],
				Confidence: math.Round(rng.Float64()*10) / 10,
			}
			in[i] = c
			if v, ok := maxSeen[c.Tactic]; !ok || c.Confidence > v {
				maxSeen[c.Tactic] = c.Confidence
			}
		}

		out := Rank(in)
		if len(out) != len(maxSeen) {
			t.Fatalf("input %v: got %d tactics, want %d", in, len(out), len(maxSeen))
		}
		seen := map[string]bool{}
		for i, c := range out {
			if seen[c.Tactic] {
				t.Fatalf("duplicate %q in %v", c.Tactic, out)
			}
			seen[c.Tactic] = true
			if c.Confidence != maxSeen[c.Tactic] {
				t.Fatalf("%q kept %v, want max %v", c.Tactic, c.Confidence, maxSeen[c.Tactic])
			}
			if i > 0 && out[i-1].Confidence < c.Confidence {
				t.Fatalf("not sorted: %v", out)
			}
		}
		if again := Rank(out); !reflect.DeepEqual(again, out) {
			t.Fatalf("not idempotent: %v then %v", out, again)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.3: 0.3, 1: 1, 7: 1}
	for in, want := range cases {
		if got := clampConfidence(in); got != want {
			t.Errorf("clampConfidence(%v) = %v, want %v", in, got, want)
		}
	}
	if got := clampConfidence(math.NaN()); got != 0 {
		t.Errorf("clampConfidence(NaN) = %v, want 0", got)
	}
}

func BenchmarkRank(b *testing.B) {
	in := make([]Candidate, 0, 64)
	for i := 0; i < 64; i++ {
		in = append(in, Candidate{Tactic: []string{"simp", "omega", "ring", "rfl"}[i%4], Confidence: float64(i%10) / 10})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Rank(in)
	}
}

func BenchmarkExtractTactic(b *testing.B) {
	raw := "Here you go:\n```lean\nby simp [Nat.gcd_self]\n```\n"
	for i := 0; i < b.N; i++ {
		_, _ = ExtractTactic("gpt-3.5-turbo", raw)
	}
}
