package cli

// geminiSpec describes the Gemini CLI.
func geminiSpec() AgentSpec {
	return AgentSpec{
		ID:          "gemini",
		DisplayName: "Gemini",
		Executable:  "gemini",
		AuthEnvVar:  "GEMINI_API_KEY",
		Models: []Model{
			{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro"},
			{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash"},
		},
		DefaultModel: "gemini-2.5-flash",
		Args:         geminiArgs,
	}
}

func geminiArgs(model, executionID string, resume bool) []string {
	args := []string{"--model", model}
	if resume {
		args = append(args, "--resume", executionID)
	}
	return args
}
