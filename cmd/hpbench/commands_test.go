package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "hpbench dev"))
}

func TestRunCmd_Flags(t *testing.T) {
	out, _, err := execute(t, "run", "--workers", "2", "--producers", "2", "--jobs", "50", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "100 executed / 100 expected")
	assert.Contains(t, out, "accounting   ok")
}

func TestRunCmd_ConfigWithOverride(t *testing.T) {
	path := writeScenario(t, "name: from-file\nworkers: 1\nproducers: 1\njobs_per_producer: 10\n")

	out, _, err := execute(t, "run", "-c", path, "-n", "20", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "scenario     from-file")
	assert.Contains(t, out, "20 executed / 20 expected")
}

func TestRunCmd_JSONLogs(t *testing.T) {
	_, errOut, err := execute(t, "run", "-w", "1", "-p", "1", "-n", "5", "--log-json")
	require.NoError(t, err)
	assert.Contains(t, errOut, `"msg":"scenario started"`)
	assert.Contains(t, errOut, `"service":"hpbench"`)
}

func TestRunCmd_Errors(t *testing.T) {
	_, _, err := execute(t, "run", "--log-level", "chatty")
	assert.ErrorContains(t, err, "unknown log level")

	_, _, err = execute(t, "run", "--producers", "0")
	assert.ErrorContains(t, err, "producers must be >= 1")

	_, _, err = execute(t, "run", "--workers=-2")
	assert.ErrorContains(t, err, "workers must be >= 0")
}
