package cli

import (
	"testing"

	"github.com/mediasearch/core/internal/config"
)

func TestAICommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	aiCmd, _, err := cmd.Find([]string{"ai"})
	if err != nil {
		t.Fatalf("failed to find ai command: %v", err)
	}
	for _, name := range []string{"start", "video"} {
		found := false
		for _, child := range aiCmd.Commands() {
			if child.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("expected ai command to have %q subcommand", name)
		}
	}
}

func TestAIStartCommand_HasModeAndAnalyzerFlags(t *testing.T) {
	cmd := NewRootCmd()
	start, _, err := cmd.Find([]string{"ai", "start"})
	if err != nil {
		t.Fatalf("failed to find ai start command: %v", err)
	}
	if f := start.Flags().Lookup("mode"); f == nil || f.DefValue != "light" {
		t.Error("expected --mode flag defaulting to \"light\"")
	}
	if f := start.Flags().Lookup("analyzer"); f == nil || f.DefValue != "mock" {
		t.Error("expected --analyzer flag defaulting to \"mock\"")
	}
}

func TestImageStageFor_RejectsUnknownMode(t *testing.T) {
	if _, _, err := imageStageFor("bogus", nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestVideoStageFor_RejectsUnknownMode(t *testing.T) {
	if _, _, err := videoStageFor("bogus", nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestResolveAnalyzer_RejectsUnknownName(t *testing.T) {
	a := &app{cfg: &config.Config{AllowMockDefault: true}}
	if _, err := resolveAnalyzer(a, "some-real-backend"); err == nil {
		t.Error("expected error for an analyzer name other than \"mock\"")
	}
}

func TestResolveAnalyzer_RejectsMockWithoutAllowFlag(t *testing.T) {
	a := &app{cfg: &config.Config{AllowMockDefault: false}}
	if _, err := resolveAnalyzer(a, "mock"); err == nil {
		t.Error("expected error when MEDIA_SEARCH_ALLOW_MOCK_DEFAULT is not set")
	}
}

func TestResolveAnalyzer_AllowsMockWithFlag(t *testing.T) {
	a := &app{cfg: &config.Config{AllowMockDefault: true}}
	analyzer, err := resolveAnalyzer(a, "mock")
	if err != nil || analyzer == nil {
		t.Errorf("expected a mock analyzer, got err=%v analyzer=%v", err, analyzer)
	}
}
