package agent

import "testing"

func TestSmalltalk(t *testing.T) {
	tests := []struct {
		input        string
		wantResponse string
		wantOK       bool
	}{
		{"hi", greetingResponse, true},
		{"Hello!", greetingResponse, true},
		{"hey there", greetingResponse, true},
		{"Good morning", greetingResponse, true},
		{"how are you?", greetingResponse, true},
		{"thanks", thanksResponse, true},
		{"Thank you very much!", thanksResponse, true},
		{"bye", goodbyeResponse, true},
		{"Goodbye.", goodbyeResponse, true},
		{"that's all", goodbyeResponse, true},

		// Real questions must reach the agent.
		{"hi, my payment failed", "", false},
		{"hello I need help with my invoice", "", false},
		{"what are your business hours", "", false},
		{"who is alice", "", false},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Smalltalk(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Smalltalk(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.wantResponse {
				t.Errorf("Smalltalk(%q) = %q, want %q", tt.input, got, tt.wantResponse)
			}
		})
	}
}

func TestIsGoodbye(t *testing.T) {
	if !IsGoodbye("bye") || !IsGoodbye("Goodbye!") {
		t.Error("IsGoodbye should accept goodbye phrases")
	}
	if IsGoodbye("hello") || IsGoodbye("goodbye my account is locked") {
		t.Error("IsGoodbye should reject non-goodbye messages")
	}
}
