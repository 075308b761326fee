package main

import (
	"context"
	"os"
	"testing"

	"github.com/masahif/scopecrawl/internal/cmd"
)

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty string")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty string")
	}

	cmd.SetVersionInfo(Version, BuildTime)
}

// TestMainLogic runs the sequence main() performs without calling os.Exit
func TestMainLogic(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	cmd.SetVersionInfo(Version, BuildTime)

	for _, args := range [][]string{
		{"scopecrawl", "--help"},
		{"scopecrawl", "--version"},
		{"scopecrawl", "scan-log", "--help"},
	} {
		os.Args = args

		ctx, cancel := context.WithCancel(context.Background())
		err := cmd.ExecuteContext(ctx)
		cancel()
		if err != nil {
			t.Errorf("ExecuteContext(%v) returned error: %v", args[1:], err)
		}
	}
}
