package cli

import "testing"

func TestTrashCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	trashCmd, _, err := cmd.Find([]string{"trash"})
	if err != nil {
		t.Fatalf("failed to find trash command: %v", err)
	}
	expected := []string{"empty", "empty-all"}
	for _, name := range expected {
		found := false
		for _, child := range trashCmd.Commands() {
			if child.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected trash command to have %q subcommand", name)
		}
	}
}

func TestTrashEmptyCommand_HasForceFlag(t *testing.T) {
	cmd := NewRootCmd()
	emptyCmd, _, err := cmd.Find([]string{"trash", "empty"})
	if err != nil {
		t.Fatalf("failed to find trash empty command: %v", err)
	}
	if emptyCmd.Flags().Lookup("force") == nil {
		t.Error("expected --force flag to be registered")
	}
}

func TestTrashEmptyCommand_RefusesWithoutForce(t *testing.T) {
	trashForce = false
	if err := runTrashEmpty(trashEmptyCmd, []string{"some-slug"}); err == nil {
		t.Error("expected an error when --force is not set")
	}
}

func TestTrashEmptyAllCommand_RefusesWithoutForce(t *testing.T) {
	trashForce = false
	if err := runTrashEmptyAll(trashEmptyAllCmd, nil); err == nil {
		t.Error("expected an error when --force is not set")
	}
}
