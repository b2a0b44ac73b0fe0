package notebook

import (
	"strings"
	"testing"
)

func TestAttribute_BadgeAndFooter(t *testing.T) {
	out := Attribute("# Quantization Formats\n\nBody text.\n")

	if !strings.HasPrefix(out, Badge+"\n\n") {
		t.Error("badge missing from start")
	}
	if !strings.HasSuffix(out, Footer+"\n") {
		t.Error("footer missing from end")
	}
	if !strings.Contains(out, "# Quantization Formats") {
		t.Error("body lost")
	}
}

func TestAttribute_Deterministic(t *testing.T) {
	a := Attribute("same body")
	b := Attribute("same body")
	if a != b {
		t.Error("attribution is not deterministic")
	}
}

func TestTitle_FirstHeading(t *testing.T) {
	body := "intro paragraph\n\n# GGUF vs ONNX\n\n## Details\n"
	if got := Title(body); got != "GGUF vs ONNX" {
		t.Errorf("title = %q", got)
	}
}

func TestTitle_CodeSpanInHeading(t *testing.T) {
	body := "# Using `ffmpeg` for resampling\n"
	if got := Title(body); got != "Using ffmpeg for resampling" {
		t.Errorf("title = %q", got)
	}
}

func TestTitle_NoHeading(t *testing.T) {
	if got := Title("just a paragraph"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
}

func TestTitleOrSlug_Fallback(t *testing.T) {
	if got := TitleOrSlug("no heading here", "quantization-formats"); got != "Quantization Formats" {
		t.Errorf("got %q", got)
	}
	if got := TitleOrSlug("# Real Title\n", "ignored-slug"); got != "Real Title" {
		t.Errorf("got %q", got)
	}
}
