package logging

import (
	"regexp"
	"sync"
)

const redacted = "[REDACTED]"

// credentialPatterns match the key formats agent CLIs accept, plus the
// generic "token: ..." shapes they echo back in error output.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),       // Anthropic (claude)
	regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_-]{20,}`), // OpenAI (codex, opencode)
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),           // Google AI (gemini)
	regexp.MustCompile(`key_[a-f0-9]{32,}`),               // Cursor
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)(?:api[_-]?key|token|secret)["'\s:=]+[a-zA-Z0-9._-]{20,}`),
}

// Sanitizer redacts credentials from log output. Besides the built-in
// patterns it redacts every literal registered with AddSecret.
type Sanitizer struct {
	mu      sync.RWMutex
	secrets []*regexp.Regexp
}

// NewSanitizer creates a sanitizer with the built-in patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize redacts credentials in input.
func (s *Sanitizer) Sanitize(input string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Literals first: a configured token may be shorter than any pattern.
	for _, re := range s.secrets {
		input = re.ReplaceAllLiteralString(input, redacted)
	}
	for _, re := range credentialPatterns {
		input = re.ReplaceAllLiteralString(input, redacted)
	}
	return input
}

// AddSecret redacts a literal value, such as a configured agent token.
// Values shorter than eight characters are ignored.
func (s *Sanitizer) AddSecret(secret string) {
	if len(secret) < 8 {
		return
	}
	re := regexp.MustCompile(regexp.QuoteMeta(secret))
	s.mu.Lock()
	s.secrets = append(s.secrets, re)
	s.mu.Unlock()
}
