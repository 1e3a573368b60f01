package subshell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/tkellem/subshell"
	"github.com/tkellem/subshell/dialect"
)

func TestParams_Validate(t *testing.T) {
	p := Params{}
	assert.NoError(t, p.Validate())
	// The host dialect supplies the program.
	assert.NotNil(t, p.Dialect)
	assert.NotEmpty(t, p.Path)
	assert.Equal(t, DefaultPollInterval, p.PollInterval)
	assert.Equal(t, DefaultPythonExe, p.PythonExe)

	p = Params{}
	p.Path = "/no/such/shell/anywhere"
	err := p.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not available")

	p = Params{Marker: dialect.Marker{V: "tiny"}}
	err = p.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "problem in Marker")
	assert.Contains(t, err.Error(), "too short at len=4")

	p = Params{Marker: dialect.NewMarker()}
	assert.NoError(t, p.Validate())
}

func TestParams_ValidateKeepsExplicitChoices(t *testing.T) {
	p := Params{Dialect: dialect.Posix, PythonExe: "python3"}
	assert.NoError(t, p.Validate())
	assert.Equal(t, "posix", p.Dialect.Name())
	assert.Equal(t, "python3", p.PythonExe)
	path, _ := dialect.Posix.Program()
	assert.Equal(t, path, p.Path)
}
