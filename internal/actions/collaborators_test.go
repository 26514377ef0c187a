package actions

import "testing"

func TestParseHTMLStripsMarkup(t *testing.T) {
	text, err := parseHTML(`<html><body><script>evil()</script><p>Hello <b>World</b></p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello World" {
		t.Errorf("got %q, want %q", text, "Hello World")
	}
}

func TestCleanHTMLCollapsesWhitespace(t *testing.T) {
	cleaned, err := cleanHTML("<p>a   b\n\nc</p>")
	if err != nil {
		t.Fatal(err)
	}
	if cleaned == "" {
		t.Error("expected non-empty cleaned output")
	}
}

func TestSplitIngredientLinesDropsBlank(t *testing.T) {
	lines := splitIngredientLines("2 cups flour\n\n1 tsp salt\n  \n3 eggs")
	want := []string{"2 cups flour", "1 tsp salt", "3 eggs"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("got %v, want %v", lines, want)
		}
	}
}

func TestImageRefPathDerivesDeterministicPath(t *testing.T) {
	p1 := imageRefPath("N1", 0, "https://example.com/a.png")
	p2 := imageRefPath("N1", 0, "https://example.com/a.png")
	if p1 != p2 {
		t.Error("expected deterministic path for identical inputs")
	}
	if p1 != "images/N1/0.png" {
		t.Errorf("got %q", p1)
	}
}
