package subshell

import "github.com/tkellem/subshell/pump"

// abbrev keeps quoted command text in errors and logs readable.
func abbrev(x string) string {
	if len(x) > pump.AbbrevMaxLen {
		return x[0:pump.AbbrevMaxLen-1] + "..."
	}
	return x
}
