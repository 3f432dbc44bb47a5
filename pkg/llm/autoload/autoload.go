// Package autoload registers every built-in LLM provider.
package autoload

import (
	_ "codenames/pkg/llm/gemini"
	_ "codenames/pkg/llm/ollama"
	_ "codenames/pkg/llm/openailm"
)
