package canonical_test

import (
	"testing"

	"lexpipe/internal/canonical"
)

func TestNormalizeTitleStripsEditionSuffix(t *testing.T) {
	got := canonical.NormalizeTitle("Curso de Direito Civil, 5ª ed., revista e atualizada")
	want := canonical.NormalizeTitle("Curso de Direito Civil")
	if got != want {
		t.Fatalf("edition suffix survived: %q != %q", got, want)
	}
	if want != "curso de direito civil" {
		t.Fatalf("normalized form = %q", want)
	}
}

func TestNormalizeTitleIsIdempotent(t *testing.T) {
	inputs := []string{
		"Comentários à Constituição do Brasil, 2ª ed.",
		"“Teoria Geral do Processo” — volume 1",
		"Direito Penal: parte geral, 12ª ed., atualizada",
	}
	for _, input := range inputs {
		once := canonical.NormalizeTitle(input)
		twice := canonical.NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle(%q) not idempotent: %q then %q", input, once, twice)
		}
	}
}

func TestNormalizeTitleTable(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "quotes and dash variants",
			in:   "“Instituições de Direito — Processual”",
			want: "instituições de direito processual",
		},
		{
			name: "descriptive subtitle dropped",
			in:   "Manual de Direito Administrativo: edição revista por terceiros",
			want: "manual de direito administrativo",
		},
		{
			name: "real subtitle kept",
			in:   "Dominação e Resistência: os escravos na justiça",
			want: "dominação e resistência os escravos na justiça",
		},
		{
			name: "embedded long date removed",
			in:   "Parecer sobre a reforma, 12 de março de 2019",
			want: "parecer sobre a reforma",
		},
		{
			name: "trailing punctuation trimmed",
			in:   "Teoria da Constituição...",
			want: "teoria da constituição",
		},
		{
			name: "volume marker removed inline",
			in:   "Tratado de Direito Privado vol. 3",
			want: "tratado de direito privado",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := canonical.NormalizeTitle(tc.in); got != tc.want {
				t.Fatalf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeTitleMinimumLengthGuard(t *testing.T) {
	// Stripping every noise token would leave fewer than eight characters,
	// so the pre-strip text must survive.
	got := canonical.NormalizeTitle("Vols. 2 e 3")
	if got == "" || len([]rune(got)) < 4 {
		t.Fatalf("short title destroyed by noise stripping: %q", got)
	}
}

func TestNormalizeTitleEmptyInput(t *testing.T) {
	if got := canonical.NormalizeTitle("   "); got != "" {
		t.Fatalf("blank input normalized to %q", got)
	}
}
