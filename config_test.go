package clbench

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	want := Config{
		RowA:          1024,
		ColA:          1024,
		ColB:          1024,
		TileSize:      16,
		WorkPerThread: 8,
		Tolerance:     0.001,
	}
	if diff := cmp.Diff(want, DefaultConfig()); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero rows", func(c *Config) { c.RowA = 0 }},
		{"negative inner", func(c *Config) { c.ColA = -3 }},
		{"zero cols", func(c *Config) { c.ColB = 0 }},
		{"zero tile", func(c *Config) { c.TileSize = 0 }},
		{"zero wpt", func(c *Config) { c.WorkPerThread = 0 }},
		{"tile not multiple of wpt", func(c *Config) { c.TileSize, c.WorkPerThread = 16, 3 }},
		{"group too large", func(c *Config) { c.TileSize, c.WorkPerThread = 64, 8 }},
		{"negative tolerance", func(c *Config) { c.Tolerance = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !IsInvalidArgError(err) {
				t.Errorf("expected invalid argument error, got %v", err)
			}
		})
	}
}

func TestConfigBuildOptions(t *testing.T) {
	tests := []struct {
		ts, wpt int
		want    string
	}{
		{16, 8, "-D TS=16 -D WPT=8"},
		{32, 4, "-D TS=32 -D WPT=4"},
		{4, 1, "-D TS=4 -D WPT=1"},
	}
	for _, tt := range tests {
		cfg := Config{TileSize: tt.ts, WorkPerThread: tt.wpt}
		if got := cfg.BuildOptions(); got != tt.want {
			t.Errorf("BuildOptions() = %q, want %q", got, tt.want)
		}
	}
}

func TestConfigFLOPs(t *testing.T) {
	cfg := Config{RowA: 3, ColA: 5, ColB: 7}
	if got := cfg.FLOPs(); got != 210 {
		t.Errorf("FLOPs() = %v, want 210", got)
	}
}
