package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, fn func() error) (stdout, stderr string, err error) {
	t.Helper()
	oldOut, oldErr := os.Stdout, os.Stderr
	defer func() {
		os.Stdout, os.Stderr = oldOut, oldErr
	}()

	outR, outW, _ := os.Pipe()
	errR, errW, _ := os.Pipe()
	os.Stdout, os.Stderr = outW, errW

	doneOut := make(chan struct{})
	var bufOut bytes.Buffer
	go func() { io.Copy(&bufOut, outR); close(doneOut) }()

	doneErr := make(chan struct{})
	var bufErr bytes.Buffer
	go func() { io.Copy(&bufErr, errR); close(doneErr) }()

	err = fn()
	outW.Close()
	errW.Close()
	<-doneOut
	<-doneErr
	stdout, stderr = bufOut.String(), bufErr.String()
	return
}

func TestHelpServe(t *testing.T) {
	out, _, err := captureOutput(t, func() error {
		return run([]string{"help", "serve"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "serve FLAGS")
}

func TestHelpRoot(t *testing.T) {
	out, _, err := captureOutput(t, func() error {
		return run([]string{"help"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "COMMANDS")
}

func TestRunUnknownCommand(t *testing.T) {
	_, _, err := captureOutput(t, func() error {
		return run([]string{"bogus"})
	})
	require.Error(t, err)
}

func TestRunMissingCommand(t *testing.T) {
	_, _, err := captureOutput(t, func() error {
		return run(nil)
	})
	require.Error(t, err)
}
