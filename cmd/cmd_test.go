package cmd

import "testing"

func TestSummarize(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this one is definitely too long", 10, "this one i..."},
		{"line\nbreaks\nflattened", 30, "line breaks flattened"},
	}
	for _, tt := range tests {
		if got := summarize(tt.in, tt.n); got != tt.want {
			t.Errorf("summarize(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestNormalizeTicketID(t *testing.T) {
	if got := normalizeTicketID(" tkt-1a2b3c4d "); got != "TKT-1A2B3C4D" {
		t.Errorf("normalizeTicketID = %q", got)
	}
}

func TestIsQuitCommand(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"quit", true},
		{"exit", true},
		{"q", true},
		{"QUIT", true},
		{"  Exit  ", true},
		{"quite", false},
		{"exit strategy", false},
		{"can I quit my subscription?", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isQuitCommand(tt.in); got != tt.want {
			t.Errorf("isQuitCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
