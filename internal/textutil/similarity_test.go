package textutil_test

import (
	"math"
	"testing"

	"lexpipe/internal/textutil"
)

func TestJaccardSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "curso de direito civil", "curso de direito civil", 1},
		{"disjoint", "direito penal", "processo tributario", 0},
		{"empty side", "", "curso de direito", 0},
		{"partial overlap", "curso de direito civil", "curso de direito penal", 3.0 / 5.0},
		{"duplicate tokens collapse", "direito direito civil", "direito civil", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := textutil.JaccardSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("JaccardSimilarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestTokenSetUniqueTokens(t *testing.T) {
	set := textutil.TokenSet("voto voto vencido")
	if len(set) != 2 {
		t.Fatalf("expected 2 unique tokens, got %d", len(set))
	}
	if _, ok := set["vencido"]; !ok {
		t.Fatal("expected token present")
	}
}
