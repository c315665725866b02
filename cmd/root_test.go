package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"switchyard/internal/client"

	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	SetVersion("1.2.3-test")
	if GetVersion() != "1.2.3-test" {
		t.Errorf("Expected version to be 1.2.3-test, got %s", GetVersion())
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "switchyard" {
		t.Errorf("Expected Use to be 'switchyard', got %s", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}
	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}
	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}

	for _, name := range []string{"version", "serve", "status", "check", "chat"} {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand %q to be registered", name)
		}
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "switchyard version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	if err := testCmd.Execute(); err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	if !strings.Contains(buf.String(), "switchyard version 1.0.0") {
		t.Errorf("Expected version output, got %q", buf.String())
	}
}

func TestVersionCommand(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()
	rootCmd.Version = "1.2.3-test"

	versionCmd := newVersionCmd()
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, []string{})

	expected := "switchyard version 1.2.3-test\n"
	if buf.String() != expected {
		t.Errorf("Expected output %q, got %q", expected, buf.String())
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "connection error",
			err:  fmt.Errorf("status: %w", client.ClassifyConnectionError(errors.New("connection refused"), "http://localhost:8095")),
			want: ExitCodeUnreachable,
		},
		{
			name: "route not ready",
			err:  &RouteNotReadyError{Route: "tasks", Timeout: time.Second},
			want: ExitCodeNotReady,
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			want: ExitCodeError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
