package handlers

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"nanofab-cli/client"
)

func TestSplitArgs(t *testing.T) {
	cases := []struct {
		in    string
		query string
		min   time.Duration
	}{
		{"", "", 0},
		{"sputter", "sputter", 0},
		{"sputter 2h", "sputter", 2 * time.Hour},
		{"wire bonder 90m", "wire bonder", 90 * time.Minute},
		{"wire bonder", "wire bonder", 0},
		{"2h", "", 2 * time.Hour},
	}
	for _, c := range cases {
		query, min, err := splitArgs(c.in)
		if err != nil {
			t.Errorf("splitArgs(%q): %v", c.in, err)
			continue
		}
		if query != c.query || min != c.min {
			t.Errorf("splitArgs(%q) = (%q, %s), want (%q, %s)", c.in, query, min, c.query, c.min)
		}
	}
}

func TestSplitArgsRejectsNonPositiveDuration(t *testing.T) {
	if _, _, err := splitArgs("sputter -1h"); err == nil {
		t.Error("negative duration should be rejected")
	}
	if _, _, err := splitArgs("sputter 0s"); err == nil {
		t.Error("zero duration should be rejected")
	}
}

func TestMatchTools(t *testing.T) {
	tools := []client.Tool{
		{Label: "Sputter System 1", ID: "94"},
		{Label: "Sputter System 2", ID: "95"},
		{Label: "Wire Bonder", ID: "12"},
	}

	if got := matchTools(tools, "sputter"); len(got) != 2 {
		t.Errorf("want both sputter systems, got %v", got)
	}
	got := matchTools(tools, "WIRE")
	if len(got) != 1 || got[0].ID != "12" {
		t.Errorf("matching should ignore case, got %v", got)
	}
	if got := matchTools(tools, "furnace"); len(got) != 0 {
		t.Errorf("want no matches, got %v", got)
	}
}

func TestBuildPickKeyboardTruncatesOnRunes(t *testing.T) {
	long := strings.Repeat("é", 50)
	keyboard := buildPickKeyboard([]client.Tool{
		{Label: long, ID: "1"},
		{Label: "Wire Bonder", ID: "2"},
	})

	if len(keyboard.InlineKeyboard) != 2 {
		t.Fatalf("want 2 rows, got %d", len(keyboard.InlineKeyboard))
	}
	label := keyboard.InlineKeyboard[0][0].Text
	if !utf8.ValidString(label) {
		t.Fatalf("truncated label is not valid UTF-8: %q", label)
	}
	if want := strings.Repeat("é", 37) + "..."; label != want {
		t.Errorf("want %q, got %q", want, label)
	}
	if got := keyboard.InlineKeyboard[1][0].Text; got != "Wire Bonder" {
		t.Errorf("short labels should pass through, got %q", got)
	}
}
