package config

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Provider:    DefaultProvider,
		Model:       DefaultOpenAIModel,
		MemexURL:    DefaultMemexURL,
		MaxTurns:    DefaultMaxTurns,
		MemoryLimit: DefaultMemoryLimit,
		Ollama: OllamaConfig{
			Host: DefaultOllamaHost,
		},
	}
}

func GenerateUserConfigTemplate() string {
	return `# Memex Configuration
# Location: ~/.config/memex/config.toml
# This file uses TOML format: https://toml.io
#
# Credentials are never read from this file. Set OPENAI_API_KEY or
# ANTHROPIC_API_KEY in the environment or in a .env file.

# LLM backend: "openai", "anthropic" or "ollama"
provider = "openai"

# Model identifier (OPENAI_MODEL / MEMEX_MODEL override this)
model = "gpt-5.2"

# memex-server base URL (MEMEX_URL overrides this on every request)
memex_url = "http://localhost:8080"

# dagit social network API. Leave empty to disable the dagit_* tools.
dagit_url = ""

# Maximum provider round trips per user message
max_turns = 10

# Number of past conversation turns loaded from the graph at startup
memory_limit = 20

# Extra instructions appended to the built-in system prompt (optional)
system_prompt = ""

[ollama]
host = "http://localhost:11434"
`
}
