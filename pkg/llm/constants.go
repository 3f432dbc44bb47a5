package llm

// StopReason constants define normalized reasons for LLM generation termination.
// All providers must normalize their native stop reasons to these values.
const (
	StopReasonStop   = "stop"   // Normal completion
	StopReasonLength = "length" // Output truncated due to token limit
	StopReasonError  = "error"  // Provider reported a failure mid-stream
)

// ContentBlock Type constants.
const (
	BlockTypeText     = "text"
	BlockTypeThinking = "thinking"
	BlockTypeError    = "error"
)

type contextKey string

// DebugDirContextKey carries the request debug id. Providers nest raw chunk
// dumps under it and the log handler prints it.
const DebugDirContextKey contextKey = "llm_debug_dir"
