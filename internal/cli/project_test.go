package cli

import "testing"

func TestProjectCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	projectCmd, _, err := cmd.Find([]string{"project"})
	if err != nil {
		t.Fatalf("failed to find project command: %v", err)
	}

	expected := []string{"create", "list", "add-asset", "remove-asset", "paths"}
	for _, name := range expected {
		found := false
		for _, child := range projectCmd.Commands() {
			if child.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected project command to have %q subcommand", name)
		}
	}
}

func TestProjectCreateCommand_RequiresName(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"project", "create"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing name argument")
	}
}

func TestProjectCreateCommand_HasExportPathFlag(t *testing.T) {
	cmd := NewRootCmd()
	createCmd, _, err := cmd.Find([]string{"project", "create"})
	if err != nil {
		t.Fatalf("failed to find project create command: %v", err)
	}
	if createCmd.Flags().Lookup("export-path") == nil {
		t.Error("expected --export-path flag to be registered")
	}
}

func TestProjectAddAssetCommand_RequiresTwoArgs(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"project", "add-asset", "only-one-arg"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing asset-id argument")
	}
}

func TestParseProjectID_RejectsNonNumeric(t *testing.T) {
	if _, err := parseProjectID("not-a-number"); err == nil {
		t.Error("expected error for non-numeric project id")
	}
}

func TestParseProjectID_AcceptsNumeric(t *testing.T) {
	id, err := parseProjectID("42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}
