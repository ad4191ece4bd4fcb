package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inkterm/inkterm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inkterm.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.toml")})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Font.Size != 12 || cfg.Font.DPI != 96 {
		t.Errorf("font defaults = %+v", cfg.Font)
	}
	if !cfg.Colors.UseBrightOnBold {
		t.Errorf("bright-on-bold disabled by default")
	}
	if len(cfg.General.Command) == 0 {
		t.Errorf("no default command")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[general]
backend = "fbdev"
device = "/dev/fb1"
orientation = 2

[font]
size = 14
dpi = 212

[colors]
use_bright_on_bold = false
default_fg = "#112233"
merge_ratio = "4/5"
`)
	cfg, err := Load([]string{"-config", path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.Backend != "fbdev" || cfg.General.Device != "/dev/fb1" {
		t.Errorf("general = %+v", cfg.General)
	}
	if cfg.General.Orientation != 2 {
		t.Errorf("orientation = %d", cfg.General.Orientation)
	}
	if cfg.Font.Size != 14 || cfg.Font.DPI != 212 {
		t.Errorf("font = %+v", cfg.Font)
	}

	opts := cfg.RendererOptions()
	if opts.BrightOnBold {
		t.Errorf("bright-on-bold not disabled")
	}
	if opts.DefaultFg != (inkterm.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xFF}) {
		t.Errorf("default fg = %+v", opts.DefaultFg)
	}
	if opts.MergeRatioNum != 4 || opts.MergeRatioDen != 5 {
		t.Errorf("merge ratio = %d/%d", opts.MergeRatioNum, opts.MergeRatioDen)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
[general]
backend = "gtk"

[font]
size = 14
`)
	cfg, err := Load([]string{
		"-config", path,
		"-backend", "term",
		"-font-size", "9",
		"-command", "/bin/sh -l",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.Backend != "term" {
		t.Errorf("backend = %q", cfg.General.Backend)
	}
	if cfg.Font.Size != 9 {
		t.Errorf("font size = %d", cfg.Font.Size)
	}
	if len(cfg.General.Command) != 2 || cfg.General.Command[0] != "/bin/sh" {
		t.Errorf("command = %v", cfg.General.Command)
	}
}

func TestPaletteOverride(t *testing.T) {
	path := writeConfig(t, `
[colors]
palette = ["#000000", "#FF0000"]
`)
	cfg, err := Load([]string{"-config", path})
	if err != nil {
		t.Fatal(err)
	}
	opts := cfg.RendererOptions()
	if opts.Palette.At(1) != (inkterm.RGBA{R: 0xFF, G: 0, B: 0, A: 0xFF}) {
		t.Errorf("palette entry 1 = %+v", opts.Palette.At(1))
	}
	// Entries past the override keep the stock values.
	if opts.Palette.At(15) != inkterm.Default256.At(15) {
		t.Errorf("palette entry 15 changed")
	}
}

func TestFontSize26_6(t *testing.T) {
	cfg := Default()
	cfg.Font.Size = 10
	if got := cfg.FontSize26_6(); got != 640 {
		t.Errorf("FontSize26_6() = %d, want 640", got)
	}
	cfg.Font.Size = 0
	if got := cfg.FontSize26_6(); got != 768 {
		t.Errorf("fallback size = %d, want 768", got)
	}
}
