package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"login", "logout", "whoami", "password", "server", "open", "subjects",
		"groups", "lessons", "attendance", "assignments", "students", "me", "upload", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCmd_Version(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "tsp version dev\n", out.String())
}
