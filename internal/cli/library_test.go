package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestLibraryCommand_Help(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"library", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Register, remove, restore, and list libraries") {
		t.Errorf("unexpected help output: %q", buf.String())
	}
}

func TestLibraryCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	libraryCmd, _, err := cmd.Find([]string{"library"})
	if err != nil {
		t.Fatalf("failed to find library command: %v", err)
	}

	expected := []string{"add", "remove", "restore", "list"}
	for _, name := range expected {
		found := false
		for _, child := range libraryCmd.Commands() {
			if child.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected library command to have %q subcommand", name)
		}
	}
}

func TestLibraryAddCommand_RequiresTwoArgs(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"library", "add", "only-one-arg"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing path argument")
	}
}

func TestLibraryListCommand_HasIncludeDeletedFlag(t *testing.T) {
	cmd := NewRootCmd()
	listCmd, _, err := cmd.Find([]string{"library", "list"})
	if err != nil {
		t.Fatalf("failed to find library list command: %v", err)
	}
	if listCmd.Flags().Lookup("include-deleted") == nil {
		t.Error("expected --include-deleted flag to be registered")
	}
}
