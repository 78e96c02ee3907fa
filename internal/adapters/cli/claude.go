package cli

// claudeSpec describes the Claude Code CLI.
func claudeSpec() AgentSpec {
	return AgentSpec{
		ID:          "claude",
		DisplayName: "Claude",
		Executable:  "claude",
		AuthEnvVar:  "ANTHROPIC_API_KEY",
		Models: []Model{
			{ID: "sonnet", DisplayName: "Claude Sonnet"},
			{ID: "opus", DisplayName: "Claude Opus"},
			{ID: "haiku", DisplayName: "Claude Haiku"},
		},
		DefaultModel: "sonnet",
		Args:         claudeArgs,
	}
}

// claudeArgs runs in print mode. A new run pins its session id so that a
// follow-up can resume it by the same id.
func claudeArgs(model, executionID string, resume bool) []string {
	args := []string{"-p", "--output-format", "text", "--model", model}
	if resume {
		return append(args, "--resume", executionID)
	}
	return append(args, "--session-id", executionID)
}
