package typeprof

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfig(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		want    *Config
		wantErr bool
	}{
		{
			name: "empty keeps defaults",
			src:  "",
			want: DefaultConfig(),
		},
		{
			name: "all keys",
			src: `
max_steps: 1000
max_duration: 30s
type_depth_limit: 3
pedantic: true
log_level: debug
`,
			want: &Config{MaxSteps: 1000, MaxDuration: 30 * time.Second, TypeDepthLimit: 3, Pedantic: true, LogLevel: "debug"},
		},
		{
			name: "partial",
			src:  "max_steps: 10\n",
			want: &Config{MaxSteps: 10, TypeDepthLimit: 5, LogLevel: "warn"},
		},
		{name: "unknown key", src: "max_step: 10\n", wantErr: true},
		{name: "negative steps", src: "max_steps: -1\n", wantErr: true},
		{name: "zero depth", src: "type_depth_limit: 0\n", wantErr: true},
		{name: "bad level", src: "log_level: loud\n", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tc.src), "typeprof.yaml")
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseConfig() must fail, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfig() failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typeprof.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	level, err := c.Level()
	if err != nil {
		t.Fatalf("Level() failed: %v", err)
	}
	if level != slog.LevelInfo {
		t.Errorf("Level() mismatch. want=%v, got=%v", slog.LevelInfo, level)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() of a missing file must fail")
	}
}
