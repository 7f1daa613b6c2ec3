package directory

import (
	"slices"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string // must all be present
		absent   []string // must not be present
	}{
		{
			name:     "drops stop words",
			question: "What are your business hours?",
			want:     []string{"business", "hours"},
			absent:   []string{"what", "are", "your"},
		},
		{
			name:     "drops short words",
			question: "is it up or on",
			want:     nil,
			absent:   []string{"is", "it", "up", "or", "on"},
		},
		{
			name:     "deduplicates",
			question: "refund refund refund policy",
			want:     []string{"refund", "policy"},
		},
		{
			name:     "lowercases",
			question: "Refund Policy",
			want:     []string{"refund", "policy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.question)
			for _, w := range tt.want {
				if !slices.Contains(got, w) {
					t.Errorf("ExtractKeywords(%q) = %v, missing %q", tt.question, got, w)
				}
			}
			for _, w := range tt.absent {
				if slices.Contains(got, w) {
					t.Errorf("ExtractKeywords(%q) = %v, should not contain %q", tt.question, got, w)
				}
			}
			counts := make(map[string]int)
			for _, w := range got {
				counts[w]++
				if counts[w] > 1 {
					t.Errorf("ExtractKeywords(%q) contains duplicate %q", tt.question, w)
				}
			}
		})
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"who is alice", "alice"},
		{"Who is Alice?", "alice"},
		{"tell me about bob smith", "bob smith"},
		{"what does carol do", "carol do"}, // pattern is greedy; partial match still finds the member
		{"alice's profile", "alice"},
		{"Is Alice around today", "alice"},
		{"what are your business hours", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := ExtractName(tt.question); got != tt.want {
				t.Errorf("ExtractName(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestIsGeneralQuestion(t *testing.T) {
	general := []string{
		"What are your business hours?",
		"how much does the pro plan cost",
		"where is your office location",
	}
	for _, q := range general {
		if !IsGeneralQuestion(q) {
			t.Errorf("IsGeneralQuestion(%q) = false, want true", q)
		}
	}

	if IsGeneralQuestion("alice bio") {
		t.Error(`IsGeneralQuestion("alice bio") = true, want false`)
	}
}

func TestFormatTeamMember(t *testing.T) {
	m := &TeamMember{Name: "Alice Chen", Role: "Support Lead", Email: "alice@example.com", Bio: "Handles escalations."}
	got := FormatTeamMember(m)
	want := "Alice Chen (Support Lead): Handles escalations. Contact: alice@example.com"
	if got != want {
		t.Errorf("FormatTeamMember() = %q, want %q", got, want)
	}

	minimal := &TeamMember{Name: "Bob", Bio: "Engineer."}
	if got := FormatTeamMember(minimal); got != "Bob: Engineer." {
		t.Errorf("FormatTeamMember(minimal) = %q", got)
	}
}
