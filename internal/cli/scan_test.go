package cli

import "testing"

func TestScanCommand_RequiresSlugArg(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"scan"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing slug argument")
	}
}

func TestScanCommand_HasVerboseFlag(t *testing.T) {
	cmd := NewRootCmd()
	scanCmd, _, err := cmd.Find([]string{"scan"})
	if err != nil {
		t.Fatalf("failed to find scan command: %v", err)
	}
	if scanCmd.Flags().Lookup("verbose") == nil {
		t.Error("expected --verbose flag to be registered")
	}
}
