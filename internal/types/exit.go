package types

const (
	ExitNormal           int = 0
	ExitErrored          int = 1
	ExitValidationFailed int = 2
	ExitUsage            int = 64
)
