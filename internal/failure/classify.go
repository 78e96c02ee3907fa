// Package failure maps raw run failures to user-actionable error categories.
package failure

import (
	"errors"
	"strings"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

// OperationParsing forces the parsing category regardless of message text.
const OperationParsing = "parsing"

// Context describes the operation that failed.
type Context struct {
	Operation string
	Agent     string
}

// keywordRule maps a keyword set to a category. First match wins.
type keywordRule struct {
	category core.ErrorCategory
	keywords []string
}

var rules = []keywordRule{
	{core.ErrCatTimeout, []string{"timeout", "timed out"}},
	{core.ErrCatNotFound, []string{"enoent", "command not found"}},
	{core.ErrCatPermission, []string{"permission", "eacces"}},
	{core.ErrCatAuthentication, []string{"authentication", "unauthorized"}},
	{core.ErrCatNetwork, []string{"network", "connection", "refused"}},
	{core.ErrCatConfiguration, []string{"configuration", "config", "invalid"}},
}

type descriptor struct {
	title       string
	message     string
	recoverable bool
	suggestions []string
}

var descriptors = map[core.ErrorCategory]descriptor{
	core.ErrCatTimeout: {
		title:       "Request Timed Out",
		message:     "The agent took too long to respond.",
		recoverable: true,
		suggestions: []string{
			"Try again; the agent may have been busy",
			"Shorten the input text",
			"Increase the execution timeout in the configuration",
		},
	},
	core.ErrCatNotFound: {
		title:       "Agent Not Found",
		message:     "The agent executable could not be located.",
		recoverable: false,
		suggestions: []string{
			"Install the agent CLI",
			"Set the agent path in the configuration",
			"Check that the configured path points to an executable",
		},
	},
	core.ErrCatPermission: {
		title:       "Permission Denied",
		message:     "The agent could not be started or could not access the working directory.",
		recoverable: false,
		suggestions: []string{
			"Make sure the agent executable has execute permission",
			"Check access rights on the working directory",
		},
	},
	core.ErrCatAuthentication: {
		title:       "Authentication Failed",
		message:     "The agent rejected its credentials.",
		recoverable: false,
		suggestions: []string{
			"Log in with the agent CLI",
			"Set a valid auth token for the agent",
			"Check that the token has not expired",
		},
	},
	core.ErrCatParsing: {
		title:       "Could Not Process Response",
		message:     "The agent's output could not be turned into a result.",
		recoverable: false,
		suggestions: []string{
			"Try a different template",
			"Try a different model or agent",
			"Copy the error details and report the issue",
		},
	},
	core.ErrCatNetwork: {
		title:       "Network Error",
		message:     "The agent could not reach its service.",
		recoverable: true,
		suggestions: []string{
			"Check your internet connection",
			"Check proxy and firewall settings",
			"Try again in a moment",
		},
	},
	core.ErrCatConfiguration: {
		title:       "Configuration Error",
		message:     "The current settings are not valid for this request.",
		recoverable: false,
		suggestions: []string{
			"Review the agent, template and tone settings",
			"Check the working directory in the configuration",
		},
	},
	core.ErrCatUnknown: {
		title:       "Something Went Wrong",
		message:     "The agent failed for an unexpected reason.",
		recoverable: false,
		suggestions: []string{
			"Try again",
			"Copy the error details and report the issue",
		},
	},
}

// Classify converts err into a categorized error.
// An error that is already categorized is returned unchanged.
func Classify(err error, opCtx *Context) *core.CategorizedError {
	if err == nil {
		return nil
	}
	var catErr *core.CategorizedError
	if errors.As(err, &catErr) && (opCtx == nil || opCtx.Operation != OperationParsing) {
		return catErr
	}
	return ClassifyMessage(MessageOf(err), opCtx)
}

// ClassifyMessage classifies a raw failure message.
func ClassifyMessage(raw string, opCtx *Context) *core.CategorizedError {
	if opCtx != nil && opCtx.Operation == OperationParsing {
		return ForCategory(core.ErrCatParsing, raw)
	}

	lower := strings.ToLower(raw)
	for _, rule := range rules {
		if containsAny(lower, rule.keywords) {
			return ForCategory(rule.category, raw)
		}
	}
	return ForCategory(core.ErrCatUnknown, raw)
}

// ForCategory builds the fixed error for a category. Unmapped categories
// fall back to unknown.
func ForCategory(category core.ErrorCategory, raw string) *core.CategorizedError {
	d, ok := descriptors[category]
	if !ok {
		category = core.ErrCatUnknown
		d = descriptors[core.ErrCatUnknown]
	}
	suggestions := make([]string, len(d.suggestions))
	copy(suggestions, d.suggestions)
	return &core.CategorizedError{
		Category:        category,
		Title:           d.title,
		Message:         d.message,
		OriginalMessage: raw,
		Recoverable:     d.recoverable,
		Suggestions:     suggestions,
	}
}

// MessageOf extracts the human message used for keyword matching.
// Domain errors contribute their message and cause, not their category tag.
func MessageOf(err error) string {
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		if domErr.Cause != nil {
			return domErr.Message + ": " + domErr.Cause.Error()
		}
		return domErr.Message
	}
	return err.Error()
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
