package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojasmm/wamsg/internal/whatsapp"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buildFile, buildStrict = "-", false
	t.Cleanup(func() { buildFile, buildStrict = "-", false })

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildCommand_Stdin(t *testing.T) {
	out, err := runCLI(t, `{"text":"Pick","sections":[{"rows":[{"title":"A","rowId":"a"}]}],"mentions":["5511999990001"]}`, "build")
	require.NoError(t, err)

	var msg whatsapp.Message
	require.NoError(t, json.Unmarshal([]byte(out), &msg))
	require.NotNil(t, msg.ListMessage)
	assert.Equal(t, whatsapp.ListTypeSingleSelect, msg.ListMessage.ListType)
	assert.Equal(t, []whatsapp.JID{"5511999990001@s.whatsapp.net"}, msg.ListMessage.ContextInfo.MentionedJID)
	assert.NoError(t, whatsapp.ValidateJSON([]byte(out)))
}

func TestBuildCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intent.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"text":"Choose","interactiveButtons":[{"name":"quick_reply","buttonParamsJson":"{\"id\":\"a\"}"}]}`), 0o600))

	out, err := runCLI(t, "", "build", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"interactiveMessage"`)
	assert.Contains(t, out, `"contextInfo": {}`)
}

func TestBuildCommand_Strict(t *testing.T) {
	intent := `{"text":"x","sections":[{"rows":[{"title":"A","rowId":"a"}]}],"buttons":[{"buttonId":"b"}]}`

	out, err := runCLI(t, intent, "build")
	require.NoError(t, err)
	assert.Contains(t, out, `"listMessage"`)

	_, err = runCLI(t, intent, "build", "--strict")
	require.Error(t, err)
	assert.True(t, whatsapp.IsCallerError(err))
}

func TestBuildCommand_RejectsUnknownFields(t *testing.T) {
	_, err := runCLI(t, `{"txt":"hello"}`, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding intent")
}
