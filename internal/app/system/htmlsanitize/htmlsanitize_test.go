package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/playsafe/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Broken swing chain", "Broken swing chain"},
		{"trims", "  loose bolt  ", "loose bolt"},
		{"strips tags", "<b>Sharp</b> edge", "Sharp edge"},
		{"drops script", "slide<script>alert('x')</script>", "slide"},
		{"keeps ampersand", "Swings & slides", "Swings & slides"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q): got %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPlainTextAll_DropsEmpty(t *testing.T) {
	got := htmlsanitize.PlainTextAll([]string{"Swings", "  ", "<i></i>", "Slides"})
	if len(got) != 2 || got[0] != "Swings" || got[1] != "Slides" {
		t.Errorf("got %v, want [Swings Slides]", got)
	}
}
