package exitcodes

// Exit codes for the emptybye daemon
// These codes form the operational contract with CI/CD and operators
const (
	Success         = 0 // Successful execution (including zero removals)
	InvalidInput    = 2 // Root path or configuration invalid or missing
	SafetyViolation = 3 // Safety validator blocked an operation
	RuntimeError    = 4 // Runtime error during execution
)
