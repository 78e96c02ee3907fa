package failure

import "github.com/hugo-lorenzo-mato/reform-ai/internal/core"

// RecoveryAction identifies an action the presentation layer can offer.
type RecoveryAction string

const (
	ActionRetry           RecoveryAction = "retry"
	ActionOpenConfig      RecoveryAction = "open-config"
	ActionInstallAgent    RecoveryAction = "install-agent"
	ActionSwitchAgent     RecoveryAction = "switch-agent"
	ActionSwitchTemplate  RecoveryAction = "switch-template"
	ActionShortenInput    RecoveryAction = "shorten-input"
	ActionCheckConnection RecoveryAction = "check-connection"
	ActionCopyError       RecoveryAction = "copy-error"
)

var recoveryActions = map[core.ErrorCategory][]RecoveryAction{
	core.ErrCatTimeout:        {ActionRetry, ActionShortenInput, ActionOpenConfig, ActionCopyError},
	core.ErrCatNotFound:       {ActionInstallAgent, ActionOpenConfig, ActionSwitchAgent, ActionCopyError},
	core.ErrCatPermission:     {ActionOpenConfig, ActionCopyError},
	core.ErrCatAuthentication: {ActionOpenConfig, ActionSwitchAgent, ActionCopyError},
	core.ErrCatParsing:        {ActionSwitchTemplate, ActionSwitchAgent, ActionCopyError},
	core.ErrCatNetwork:        {ActionRetry, ActionCheckConnection, ActionCopyError},
	core.ErrCatConfiguration:  {ActionOpenConfig, ActionSwitchTemplate, ActionCopyError},
	core.ErrCatUnknown:        {ActionRetry, ActionCopyError},
}

// RecoveryActions returns the ordered actions for err's category,
// falling back to the unknown category's actions.
func RecoveryActions(err *core.CategorizedError) []RecoveryAction {
	var actions []RecoveryAction
	if err != nil {
		actions = recoveryActions[err.Category]
	}
	if actions == nil {
		actions = recoveryActions[core.ErrCatUnknown]
	}
	out := make([]RecoveryAction, len(actions))
	copy(out, actions)
	return out
}
