package ticket

import (
	"strings"
	"testing"
)

func TestNewTicketID_Format(t *testing.T) {
	id, err := NewTicketID()
	if err != nil {
		t.Fatalf("NewTicketID() = %v", err)
	}
	if !ValidTicketID(id) {
		t.Errorf("NewTicketID() = %q, not a valid ticket id", id)
	}
	if !strings.HasPrefix(id, "TKT-") {
		t.Errorf("NewTicketID() = %q, want TKT- prefix", id)
	}
	if len(id) != 12 {
		t.Errorf("NewTicketID() length = %d, want 12", len(id))
	}
}

func TestNewTicketID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id, err := NewTicketID()
		if err != nil {
			t.Fatalf("NewTicketID() = %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate ticket id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValidTicketID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"TKT-3F2A9C01", true},
		{"TKT-00000000", true},
		{"TKT-FFFFFFFF", true},
		{"TKT-3f2a9c01", false}, // lowercase hex not accepted
		{"TKT-3F2A9C0", false},  // too short
		{"TKT-3F2A9C011", false},
		{"TIC-3F2A9C01", false},
		{"TKT-3F2A9CZZ", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidTicketID(tt.id); got != tt.want {
			t.Errorf("ValidTicketID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
