package dialect

import (
	"fmt"

	"github.com/google/uuid"
)

// Marker holds the token a dialect arranges to have echoed on stdout
// once a command finishes. Finding the token in the output stream is
// what ends a command; the exit status rides on the same line.
// Example line on stdout:
//
//	subshell-done-2f1c.. 0
//
// The token must be exceedingly unlikely to appear in ordinary
// command output. A false positive truncates captured output and
// misattributes an exit code, so NewMarker builds the token around
// a fresh random UUID.
type Marker struct {
	// V is the token value. Leave it to NewMarker unless output is
	// being replayed against a known token.
	V string
}

// NewMarker returns a Marker carrying a fresh random token.
func NewMarker() Marker {
	return Marker{V: markerPrefix + uuid.NewString()}
}

const (
	markerPrefix = "subshell-done-"

	// markerValueLenMin is used in Marker validation.
	// The longer the token, the smaller the chance of confusing
	// it with legitimate output.
	markerValueLenMin = 12
)

// Validate returns an error if there's a problem in the Marker.
// This validation is critical; an empty token would match at every
// scan position and end commands instantly.
func (m Marker) Validate() error {
	if m.V == "" {
		return fmt.Errorf("must specify a marker token")
	}
	if len(m.V) < markerValueLenMin {
		return fmt.Errorf(
			"marker token %q too short at len=%d; must be >= %d chars long",
			m.V, len(m.V), markerValueLenMin)
	}
	return nil
}
