package types

import "fmt"

// Two-valued flag sent to the service as the literal strings "Yes" and "No"
type AssemblyFlag string

const (
	AssemblyFlagYes AssemblyFlag = "Yes"
	AssemblyFlagNo  AssemblyFlag = "No"
)

func AssemblyFlagFromBool(b bool) AssemblyFlag {
	if b {
		return AssemblyFlagYes
	}
	return AssemblyFlagNo
}

func (f AssemblyFlag) Bool() bool {
	return f == AssemblyFlagYes
}

func ParseAssemblyFlag(s string) (AssemblyFlag, error) {
	switch AssemblyFlag(s) {
	case AssemblyFlagYes, AssemblyFlagNo:
		return AssemblyFlag(s), nil
	default:
		return "", fmt.Errorf("invalid assembly flag %q: must be %q or %q", s, AssemblyFlagYes, AssemblyFlagNo)
	}
}
