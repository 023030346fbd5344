package server

import (
	"testing"

	"github.com/Me8mer/robot-arena/game"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name passes", "Striker", "Striker"},
		{"digits and separators kept", "bot_7-alpha", "bot_7-alpha"},
		{"spaces stripped", "red leader", "redleader"},
		{"markup stripped", "<script>x</script>", "scriptxscript"},
		{"truncated to twenty", "abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrst"},
		{"empty stays empty", "", ""},
		{"only junk becomes empty", "!!!***", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeName(tt.input); got != tt.expected {
				t.Errorf("sanitizeName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidateTeam(t *testing.T) {
	if !validateTeam(game.TeamRed) || !validateTeam(game.TeamBlue) {
		t.Error("real teams rejected")
	}
	if validateTeam(game.TeamNone) || validateTeam(3) {
		t.Error("out-of-range team accepted")
	}
}

func TestValidateClass(t *testing.T) {
	for class := range game.ClassData {
		if !validateClass(class) {
			t.Errorf("known class %v rejected", class)
		}
	}
	if validateClass(game.ClassType(99)) {
		t.Error("unknown class accepted")
	}
}
