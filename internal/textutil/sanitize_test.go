package textutil_test

import (
	"strings"
	"testing"

	"lexpipe/internal/textutil"
)

func TestStripMarkupDropsScriptAndStyle(t *testing.T) {
	html := `<html><head><style>.x{color:red}</style><script>alert("hi")</script></head>
<body><p>EMENTA</p><div>Direito  Civil</div></body></html>`
	got := textutil.StripMarkup(html)
	if strings.Contains(got, "alert") || strings.Contains(got, "color:red") {
		t.Fatalf("expected script/style content removed, got %q", got)
	}
	if !strings.Contains(got, "EMENTA") || !strings.Contains(got, "Direito Civil") {
		t.Fatalf("expected body text preserved, got %q", got)
	}
}

func TestStripMarkupBlockTagsBecomeLineBreaks(t *testing.T) {
	got := textutil.StripMarkup("<p>EMENTA</p><p>RELATÓRIO</p>")
	if !strings.Contains(got, "EMENTA\n") {
		t.Fatalf("expected line break between blocks, got %q", got)
	}
}

func TestStripMarkupDecodesEntities(t *testing.T) {
	got := textutil.StripMarkup("<p>5&ordf; ed. &amp; outros</p>")
	if got != "5ª ed. & outros" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestStripMarkupEmpty(t *testing.T) {
	if got := textutil.StripMarkup("   \n "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := textutil.CollapseWhitespace("  a \t b \n\n\n\n c  ")
	if got != "a b\n\nc" {
		t.Fatalf("unexpected result %q", got)
	}
}
