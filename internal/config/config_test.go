package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		filePath string
		env      map[string]string
		want     *Config
		wantErr  bool
	}{
		{
			name:     "reads file",
			filePath: "testdata/formflow.yaml",
			want: &Config{
				Log:      LogConfig{Level: "debug", Format: "json"},
				Messages: "./messages.yaml",
				Prompt:   PromptConfig{MaxAttempts: 3},
			},
		},
		{
			name:     "env overrides file",
			filePath: "testdata/formflow.yaml",
			env: map[string]string{
				"FORMFLOW_LOG_LEVEL": "warn",
				"FORMFLOW_MESSAGES":  "/etc/formflow/messages.yaml",
			},
			want: &Config{
				Log:      LogConfig{Level: "warn", Format: "json"},
				Messages: "/etc/formflow/messages.yaml",
				Prompt:   PromptConfig{MaxAttempts: 3},
			},
		},
		{
			name:     "missing explicit file",
			filePath: "testdata/missing.yaml",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			got, err := Load(tt.filePath)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got config %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("FORMFLOW_LOG_FORMAT", "json")
	t.Setenv("FORMFLOW_PROMPT_MAX_ATTEMPTS", "7")

	got, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := &Config{
		Log:    LogConfig{Level: "info", Format: "json"},
		Prompt: PromptConfig{MaxAttempts: 7},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("log:\n  level: error\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	got, err = Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.Log.Level != "error" {
		t.Fatalf("expected file level error, got %q", got.Log.Level)
	}
}
