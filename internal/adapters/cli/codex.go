package cli

// codexSpec describes the OpenAI Codex CLI.
func codexSpec() AgentSpec {
	return AgentSpec{
		ID:          "codex",
		DisplayName: "Codex",
		Executable:  "codex",
		AuthEnvVar:  "OPENAI_API_KEY",
		Models: []Model{
			{ID: "gpt-5", DisplayName: "GPT-5"},
			{ID: "gpt-5-codex", DisplayName: "GPT-5 Codex"},
			{ID: "o4-mini", DisplayName: "o4-mini"},
		},
		DefaultModel: "gpt-5",
		Args:         codexArgs,
	}
}

// codexArgs uses non-interactive exec mode; "-" reads the prompt from stdin.
func codexArgs(model, executionID string, resume bool) []string {
	args := []string{"exec", "--skip-git-repo-check", "--model", model}
	if resume {
		args = append(args, "resume", executionID)
	}
	return append(args, "-")
}
