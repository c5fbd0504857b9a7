package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no repository, invalid config) / Ollama or MongoDB not reachable
	ExitDataError   = 3 // Data error (malformed input, validation failure)
	ExitEmptyInput  = 4 // Input contained no entries
)
