package cli

// opencodeSpec describes the OpenCode CLI. It reads provider credentials
// from its own configuration, so no auth variable is injected.
func opencodeSpec() AgentSpec {
	return AgentSpec{
		ID:          "opencode",
		DisplayName: "OpenCode",
		Executable:  "opencode",
		Models: []Model{
			{ID: "anthropic/claude-sonnet-4", DisplayName: "Claude Sonnet 4"},
			{ID: "openai/gpt-5", DisplayName: "GPT-5"},
		},
		DefaultModel: "anthropic/claude-sonnet-4",
		Args:         opencodeArgs,
	}
}

func opencodeArgs(model, executionID string, resume bool) []string {
	args := []string{"run", "--model", model}
	if resume {
		args = append(args, "--session", executionID)
	}
	return args
}
