package pump

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Make sure the end of the line is as expected.
func TestEnsureTerminated(t *testing.T) {
	var empty byte // intentionally left uninitialized
	const (
		semiColonChar = ';'
		hello         = "hello"
		semiColon     = string(semiColonChar)
		newLine       = string(newLineChar)
	)
	testCases := map[string]struct {
		line     string
		term     byte
		expected string
	}{
		// FWIW: empty lines are empty lines (no semicolon).
		"emptyLine": {
			line:     "",
			term:     semiColonChar,
			expected: newLine,
		},
		"bareWord": {
			line:     hello,
			term:     semiColonChar,
			expected: hello + semiColon + newLine,
		},
		"alreadyHasTerm": {
			line:     hello + semiColon,
			term:     semiColonChar,
			expected: hello + semiColon + newLine,
		},
		"hasNewLine": {
			line:     hello + newLine,
			term:     semiColonChar,
			expected: hello + semiColon + newLine,
		},
		"hasTermAndNewLine": {
			line:     hello + semiColon + newLine,
			term:     semiColonChar,
			expected: hello + semiColon + newLine,
		},
		"noTermWanted": {
			line:     hello,
			term:     empty,
			expected: hello + newLine,
		},
		"noTermWantedKeepsSemi": {
			line:     hello + semiColon,
			term:     empty,
			expected: hello + semiColon + newLine,
		},
		"noTermWantedHasNewLine": {
			line:     hello + newLine,
			term:     empty,
			expected: hello + newLine,
		},
		"bareNewLine": {
			line:     newLine,
			term:     semiColonChar,
			expected: newLine,
		},
	}
	for n, tc := range testCases {
		t.Run(n, func(t *testing.T) {
			assert.Equal(
				t, tc.expected, string(ensureTerminated(tc.line, tc.term)))
		})
	}
}
