package main

import (
	"fmt"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Empty and blank input
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("")

	if len(result.Warnings) != 0 {
		t.Errorf("expected 0 warnings for empty source, got %d", len(result.Warnings))
	}
	// Slices stay non-nil so JSON carries [] instead of null.
	if result.Meshes == nil {
		t.Error("Meshes should be non-nil empty slice, got nil")
	}
	if result.Errors == nil {
		t.Error("Errors should be non-nil empty slice, got nil")
	}
	if result.Warnings == nil {
		t.Error("Warnings should be non-nil empty slice, got nil")
	}
}

func TestE2EBlankSources(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"whitespace", "   \n\t\n  "},
		{"comments", ";; nothing here\n;; still nothing\n"},
		{"comments with whitespace", "\n  ; one\n\n\t;; two\n\n"},
		{"canvas only", "(canvas 64 64)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewApp().Evaluate(tt.source)
			if len(result.Errors) != 0 {
				t.Errorf("unexpected errors: %v", result.Errors)
			}
			if len(result.Meshes) != 0 {
				t.Errorf("expected 0 meshes, got %d", len(result.Meshes))
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Syntax errors
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := NewApp()

	// Valid code on line 1, broken code on line 2.
	source := "(+ 1 2)\n(layer \"test\""
	result := app.Evaluate(source)

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on syntax error, got %d", len(result.Meshes))
	}
	if result.Errors[0].Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
}

// ---------------------------------------------------------------------------
// Scene and reconstruction errors
// ---------------------------------------------------------------------------

func TestE2EErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{
			"zero radius",
			`(canvas 64 64) (layer "a" (circle 0 :at (vec2 32 32)))`,
			"",
		},
		{
			"negative size",
			`(canvas 64 64) (layer "a" (rect -5 10))`,
			"",
		},
		{
			"duplicate layer",
			`(canvas 64 64) (layer "a" (rect 10 10)) (layer "a" (rect 10 10))`,
			"",
		},
		{
			"undefined control point",
			`(canvas 64 64) (layer "a" (rect 40 40 :at (vec2 12 12))) (move "hand" (vec2 1 2))`,
			"",
		},
		{
			"layer off canvas",
			`(canvas 64 64) (layer "a" (rect 10 10 :at (vec2 500 500)))`,
			"reconstruction failed",
		},
		{
			"control point off surface",
			`(canvas 96 96) (config :subsample 1)
			 (layer "a" (rect 20 20 :at (vec2 10 10)))
			 (control-point "far" (vec2 80 80))`,
			"reconstruction failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewApp().Evaluate(tt.source)
			if len(result.Errors) == 0 {
				t.Fatal("expected an error")
			}
			if len(result.Meshes) != 0 {
				t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
			}
			if tt.wantMsg != "" && !strings.Contains(result.Errors[0].Message, tt.wantMsg) {
				t.Errorf("error %q does not mention %q", result.Errors[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestE2EUnknownSettingWarns(t *testing.T) {
	source := `(canvas 64 64) (config :sharpness 3) (layer "a" (rect 40 40 :at (vec2 12 12)))`
	result := NewApp().Evaluate(source)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning for the unknown setting")
	}
	if !strings.Contains(result.Warnings[0].Message, "sharpness") {
		t.Errorf("warning %q does not name the setting", result.Warnings[0].Message)
	}
}

// ---------------------------------------------------------------------------
// Rapid re-evaluation
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluation(t *testing.T) {
	app := NewApp()
	sources := []string{
		`(canvas 64 64) (layer "a" (rect 40 40 :at (vec2 12 12)))`,
		`(layer "a"`,
		``,
		`(canvas 64 64) (layer "a" (circle 20 :at (vec2 32 32)))`,
	}
	for i := 0; i < 12; i++ {
		src := sources[i%len(sources)]
		result := app.Evaluate(src)
		switch i % len(sources) {
		case 0, 3:
			if len(result.Errors) != 0 || len(result.Meshes) != 1 {
				t.Fatalf("iteration %d: %d errors, %d meshes", i, len(result.Errors), len(result.Meshes))
			}
		case 1:
			if len(result.Errors) == 0 {
				t.Fatalf("iteration %d: expected error", i)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Arithmetic in arguments
// ---------------------------------------------------------------------------

func TestE2EArithmetic(t *testing.T) {
	source := `
(def w 32)
(def margin (/ w 4))
(canvas (* 2 w) (* 2 w))
(layer "a" (rect (- (* 2 w) (* 2 margin)) w :at (vec2 margin margin)))
`
	result := NewApp().Evaluate(source)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
}

// ---------------------------------------------------------------------------
// Color palette
// ---------------------------------------------------------------------------

func TestE2EColorPaletteWrapping(t *testing.T) {
	var b strings.Builder
	b.WriteString("(canvas 96 96) (config :subsample 1)\n")
	for i := 0; i < 9; i++ {
		x, y := 4+30*(i%3), 4+30*(i/3)
		fmt.Fprintf(&b, "(layer \"l%d\" (rect 20 20 :at (vec2 %d %d)))\n", i, x, y)
	}

	result := NewApp().Evaluate(b.String())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 9 {
		t.Fatalf("expected 9 meshes, got %d", len(result.Meshes))
	}
	for i, m := range result.Meshes {
		want := colorPalette[i%len(colorPalette)]
		if m.Color != want {
			t.Errorf("mesh %d: color %s, want %s", i, m.Color, want)
		}
	}
	if result.Meshes[8].Color != result.Meshes[0].Color {
		t.Error("palette did not wrap")
	}
}
