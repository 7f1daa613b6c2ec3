package agent

// smalltalk.go short-circuits conversational pleasantries.
//
// Greetings, thanks, and goodbyes get a canned reply without an LLM call.
// Matching is deliberately strict: only short messages that consist of a
// known phrase qualify, so "hi, my payment failed" still reaches the agent.

import "strings"

// Canned replies for conversational messages.
const (
	greetingResponse = "Hello! I'm your support assistant. Ask me about our team, policies, or products, and I'll do my best to help."
	thanksResponse   = "You're welcome! Is there anything else I can help you with?"
	goodbyeResponse  = "Thanks for reaching out. If anything else comes up, just ask. Goodbye!"
)

// smalltalkMaxWords bounds how long a message can be and still count as
// smalltalk. Longer messages always go to the agent.
const smalltalkMaxWords = 4

var greetingPhrases = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"hi there": true, "hello there": true, "hey there": true,
	"how are you": true, "what's up": true, "whats up": true,
}

var thanksPhrases = map[string]bool{
	"thanks": true, "thank you": true, "thanks a lot": true,
	"thank you very much": true, "thx": true, "ty": true,
	"great thanks": true, "perfect thanks": true,
}

var goodbyePhrases = map[string]bool{
	"bye": true, "goodbye": true, "bye bye": true, "see you": true,
	"see ya": true, "take care": true, "good night": true,
	"that's all": true, "thats all": true,
}

// Smalltalk returns a canned reply for conversational messages.
// ok is false when the message should go to the agent.
func Smalltalk(input string) (response string, ok bool) {
	normalized := normalizeSmalltalk(input)
	if normalized == "" || len(strings.Fields(normalized)) > smalltalkMaxWords {
		return "", false
	}

	switch {
	case greetingPhrases[normalized]:
		return greetingResponse, true
	case thanksPhrases[normalized]:
		return thanksResponse, true
	case goodbyePhrases[normalized]:
		return goodbyeResponse, true
	}
	return "", false
}

// IsGoodbye reports whether the message ends the conversation.
// Used by the REPL to exit after replying.
func IsGoodbye(input string) bool {
	return goodbyePhrases[normalizeSmalltalk(input)]
}

// normalizeSmalltalk lowercases and strips trailing punctuation.
func normalizeSmalltalk(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	return strings.TrimRight(s, "!.?, ")
}
