package cli

import "testing"

func TestProxyCommand_HasExpectedFlags(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"proxy", "video-proxy"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil {
			t.Fatalf("failed to find %q command: %v", name, err)
		}
		for _, flag := range []string{"library", "all", "once", "repair", "verbose", "heartbeat", "worker-name"} {
			if sub.Flags().Lookup(flag) == nil {
				t.Errorf("%q: expected --%s flag to be registered", name, flag)
			}
		}
	}
}

func TestWorkerFlags_Scope_RequiresExactlyOne(t *testing.T) {
	f := &workerFlags{}
	if _, _, err := f.scope(); err == nil {
		t.Error("expected error when neither --library nor --all is set")
	}

	f = &workerFlags{library: "lib1", all: true}
	if _, _, err := f.scope(); err == nil {
		t.Error("expected error when both --library and --all are set")
	}

	f = &workerFlags{library: "lib1"}
	slug, all, err := f.scope()
	if err != nil || slug != "lib1" || all {
		t.Errorf("unexpected scope result: slug=%q all=%v err=%v", slug, all, err)
	}

	f = &workerFlags{all: true}
	slug, all, err = f.scope()
	if err != nil || slug != "" || !all {
		t.Errorf("unexpected scope result: slug=%q all=%v err=%v", slug, all, err)
	}
}

func TestWorkerFlags_WorkerID_DefaultsToHostnamePid(t *testing.T) {
	f := &workerFlags{}
	if f.workerID() == "" {
		t.Error("expected a non-empty default worker id")
	}

	f = &workerFlags{workerName: "custom-worker"}
	if got := f.workerID(); got != "custom-worker" {
		t.Errorf("workerID() = %q, want %q", got, "custom-worker")
	}
}
