package cli

import "testing"

func TestAssetListCommand_HasStatusAndLimitFlags(t *testing.T) {
	cmd := NewRootCmd()
	list, _, err := cmd.Find([]string{"asset", "list"})
	if err != nil {
		t.Fatalf("failed to find asset list command: %v", err)
	}
	if list.Flags().Lookup("status") == nil {
		t.Error("expected --status flag to be registered")
	}
	if f := list.Flags().Lookup("limit"); f == nil || f.DefValue != "100" {
		t.Error("expected --limit flag defaulting to 100")
	}
}

func TestAssetListCommand_RequiresSlugArg(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"asset", "list"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing slug argument")
	}
}
