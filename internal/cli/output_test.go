package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting string

func (g greeting) Text() string { return "hello, " + string(g) + "\n" }

func TestOutput_JSONResult(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, newOutput("json", buf).Result(map[string]string{"result": "success"}))

	var env Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "ok", env.Status)
	assert.NotNil(t, env.Data)
	assert.Nil(t, env.Problem)
}

func TestOutput_TextResult(t *testing.T) {
	buf := &bytes.Buffer{}
	out := newOutput("text", buf)

	require.NoError(t, out.Result("plain value"))
	assert.Equal(t, "plain value\n", buf.String())

	buf.Reset()
	require.NoError(t, out.Result(greeting("world")))
	assert.Equal(t, "hello, world\n", buf.String(), "Texter renders itself")
}

func TestOutput_JSONProblem(t *testing.T) {
	buf := &bytes.Buffer{}
	err := commandError(ErrCodeBackend, "backend stopped", errors.New("listen tcp: address in use"))
	require.NoError(t, newOutput("json", buf).Problem(err))

	var env Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Problem)
	assert.Equal(t, ErrCodeBackend, env.Problem.Code)
	assert.Equal(t, "backend stopped", env.Problem.Message)
	assert.Equal(t, "listen tcp: address in use", env.Problem.Cause)
}

func TestOutput_TextProblem(t *testing.T) {
	buf := &bytes.Buffer{}
	out := newOutput("text", buf)

	require.NoError(t, out.Problem(commandError(ErrCodeJournal, "journal locked", nil)))
	assert.Equal(t, "error E004: journal locked\n", buf.String())

	buf.Reset()
	require.NoError(t, out.Problem(errors.New(`unknown flag: --nope`)))
	assert.Equal(t, "error E000: unknown flag: --nope\n", buf.String(), "untagged errors keep their text")
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")

	failed := featureFailure("fetch failed", cause)
	assert.Equal(t, "fetch failed: boom", failed.Error())
	assert.ErrorIs(t, failed, cause)
	assert.Equal(t, ExitFailure, GetExitCode(failed))
	assert.Equal(t, ErrCodeFeature, reasonOf(failed))

	usage := commandError(ErrCodeUsage, "bad flag", nil)
	assert.Equal(t, "bad flag", usage.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(usage))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", usage)))

	assert.Equal(t, ExitCommandError, GetExitCode(cause), "untagged errors are command errors")
	assert.Equal(t, ErrCodeUnknown, reasonOf(cause))
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}
