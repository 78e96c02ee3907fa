// Package response turns raw agent stdout into displayable variants.
package response

import (
	"errors"
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// ErrEmptyResponse is returned when nothing is left after cleaning.
var ErrEmptyResponse = errors.New("agent returned an empty response")

// Codex exec prints its answer between a "[ts] codex" header and a
// "[ts] tokens used: N" footer.
var (
	wrapperFooter = regexp.MustCompile(`(?m)^\s*\[[^\]\n]*\]\s*tokens used:`)
	wrapperHeader = regexp.MustCompile(`(?m)^\s*\[[^\]\n]*\]\s*codex[ \t]*$`)
)

// lineEndings folds CRLF and lone CR to LF so the anchors below see one form.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// preambles are matched case-insensitively at the start of the text only.
var preambles = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s|’s| is) (?:the |your |a )?(?:re)?(?:formatted|written|rewritten|revised|polished|improved|edited|updated|corrected)(?: version(?: of)?(?: the| your)?)?(?: text| message| email| content| draft| version)?[^:\n]{0,40}:\s*`),
	regexp.MustCompile(`(?i)^i(?:'ve|’ve| have) (?:re)?(?:formatted|written|rewritten|revised|polished|edited|updated|corrected)[^:\n]{0,80}:\s*`),
	regexp.MustCompile(`(?i)^(?:sure|certainly|of course)[!,.]?\s*here(?:'s|’s| is)[^:\n]{0,60}:\s*`),
	regexp.MustCompile(`(?i)^as an ai(?: language model| assistant)?,[^.\n]*\.\s*`),
	regexp.MustCompile(`(?i)^loaded cached credentials\.\s*`),
	regexp.MustCompile(`(?i)^data collection is disabled\.\s*`),
}

// Clean strips agent-specific wrappers, preambles and surrounding quotes.
// It is deterministic and has no side effects.
func Clean(raw string) (string, error) {
	text := lineEndings.Replace(ansi.Strip(raw))

	if inner, ok := unwrapLog(text); ok {
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return "", ErrEmptyResponse
		}
		return inner, nil
	}

	text = strings.TrimSpace(text)
	text = stripPreambles(text)
	text = stripQuotes(text)
	text = strings.TrimSpace(text)

	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// unwrapLog extracts the last answer block of a bracketed-log transcript.
func unwrapLog(text string) (string, bool) {
	footers := wrapperFooter.FindAllStringIndex(text, -1)
	if len(footers) == 0 {
		return "", false
	}
	footerStart := footers[len(footers)-1][0]

	headers := wrapperHeader.FindAllStringIndex(text[:footerStart], -1)
	if len(headers) == 0 {
		return "", false
	}
	headerEnd := headers[len(headers)-1][1]

	return text[headerEnd:footerStart], true
}

func stripPreambles(text string) string {
	for {
		stripped := false
		for _, re := range preambles {
			if loc := re.FindStringIndex(text); loc != nil && loc[1] > 0 {
				text = strings.TrimLeft(text[loc[1]:], " \t\r\n")
				stripped = true
			}
		}
		if !stripped {
			return text
		}
	}
}

func stripQuotes(text string) string {
	if len(text) < 2 {
		return text
	}
	first, last := text[0], text[len(text)-1]
	if (first == '"' || first == '\'') && first == last {
		return text[1 : len(text)-1]
	}
	return text
}
