package pump

import "fmt"

// paramErr returns an error describing a parameter problem.
func paramErr(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// paramErrCaused is like paramErr, with an underlying cause appended.
func paramErrCaused(cause error, format string, args ...any) error {
	return fmt.Errorf(format+"; %w", append(args, cause)...)
}
