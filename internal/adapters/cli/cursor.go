package cli

// cursorSpec describes the Cursor agent CLI.
func cursorSpec() AgentSpec {
	return AgentSpec{
		ID:          "cursor",
		DisplayName: "Cursor Agent",
		Executable:  "cursor-agent",
		AuthEnvVar:  "CURSOR_API_KEY",
		Models: []Model{
			{ID: "auto", DisplayName: "Auto"},
			{ID: "sonnet-4", DisplayName: "Claude Sonnet 4"},
			{ID: "gpt-5", DisplayName: "GPT-5"},
		},
		DefaultModel: "auto",
		Args:         cursorArgs,
	}
}

func cursorArgs(model, executionID string, resume bool) []string {
	args := []string{"-p", "--output-format", "text", "--model", model}
	if resume {
		args = append(args, "--resume", executionID)
	}
	return args
}
