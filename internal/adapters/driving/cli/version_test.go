package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Executes(t *testing.T) {
	out, err := execute(t, &App{Version: "test-version-1.0.0"}, "", "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "docportal version test-version-1.0.0")
}

func TestVersionCmd_DisplaysDevByDefault(t *testing.T) {
	out, err := execute(t, &App{}, "", "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "docportal version dev")
}

func TestVersionCmd_SkipsSetup(t *testing.T) {
	app := &App{
		Version: "1.2.3",
		Setup: func(*App, bool) error {
			return errors.New("no data dir")
		},
	}

	out, err := execute(t, app, "", "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
}
