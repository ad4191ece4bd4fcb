// Package config loads the terminal configuration from a TOML file and
// merges command line overrides on top of it.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/inkterm/inkterm"
)

// General holds backend and layout settings.
type General struct {
	// Backend selects the display backend: "fbdev", "gtk", "qt" or
	// "term".
	Backend string `toml:"backend"`

	// Device is the framebuffer device for the fbdev backend.
	Device string `toml:"device"`

	// Orientation of the rendering in 90° steps (0-3).
	Orientation int `toml:"orientation"`

	// Command run on the PTY.
	Command []string `toml:"command"`
}

// Font holds the glyph provider settings.
type Font struct {
	// File is the path of an OpenType/TrueType font. Empty selects the
	// builtin bitmap font.
	File string `toml:"file"`

	// Size in points.
	Size int `toml:"size"`

	// DPI of the target display.
	DPI int `toml:"dpi"`
}

// Colors holds the color settings.
type Colors struct {
	// UseBrightOnBold promotes bold indexed foregrounds into the bright
	// half of the palette.
	UseBrightOnBold bool `toml:"use_bright_on_bold"`

	// DefaultFg and DefaultBg are "#RRGGBB" strings.
	DefaultFg string `toml:"default_fg"`
	DefaultBg string `toml:"default_bg"`

	// Palette overrides the first 16 palette entries with "#RRGGBB"
	// strings.
	Palette []string `toml:"palette"`

	// MergeRatio bounds the waste of merged commit regions, e.g. "3/4".
	MergeRatio string `toml:"merge_ratio"`
}

// Config is the full terminal configuration.
type Config struct {
	General General `toml:"general"`
	Font    Font    `toml:"font"`
	Colors  Colors  `toml:"colors"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		General: General{
			Backend:     "gtk",
			Device:      "/dev/fb0",
			Orientation: 0,
			Command:     []string{defaultShell()},
		},
		Font: Font{
			Size: 12,
			DPI:  96,
		},
		Colors: Colors{
			UseBrightOnBold: true,
			DefaultFg:       "#F7F7F7",
			DefaultBg:       "#000000",
		},
	}
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// defaultPath returns the per-user configuration file location.
func defaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "inkterm", "inkterm.toml")
	}
	return ""
}

// Load builds the configuration: defaults, then the TOML file, then the
// given command line arguments (without the program name).
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("inkterm", flag.ContinueOnError)
	configPath := fs.String("config", defaultPath(), "configuration file")
	backend := fs.String("backend", "", "display backend (fbdev, gtk, qt, term)")
	device := fs.String("device", "", "framebuffer device")
	fontFile := fs.String("font", "", "font file")
	fontSize := fs.Int("font-size", 0, "font size in points")
	dpi := fs.Int("dpi", 0, "display resolution in dots per inch")
	orientation := fs.Int("orientation", -1, "rotation in 90 degree steps (0-3)")
	command := fs.String("command", "", "command to run")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: %w", err)
		}
	}

	if *backend != "" {
		cfg.General.Backend = *backend
	}
	if *device != "" {
		cfg.General.Device = *device
	}
	if *fontFile != "" {
		cfg.Font.File = *fontFile
	}
	if *fontSize > 0 {
		cfg.Font.Size = *fontSize
	}
	if *dpi > 0 {
		cfg.Font.DPI = *dpi
	}
	if *orientation >= 0 {
		cfg.General.Orientation = *orientation
	}
	if *command != "" {
		cfg.General.Command = strings.Fields(*command)
	}
	return cfg, nil
}

// parseHexColor parses a "#RRGGBB" string.
func parseHexColor(s string) (inkterm.RGBA, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return inkterm.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return inkterm.RGBA{}, false
	}
	return inkterm.RGBAFromHex(uint32(v)), true
}

// RendererOptions translates the color configuration into renderer
// options.
func (c *Config) RendererOptions() inkterm.RendererOptions {
	opts := inkterm.DefaultRendererOptions()
	opts.BrightOnBold = c.Colors.UseBrightOnBold

	if fg, ok := parseHexColor(c.Colors.DefaultFg); ok {
		opts.DefaultFg = fg
	}
	if bg, ok := parseHexColor(c.Colors.DefaultBg); ok {
		opts.DefaultBg = bg
	}

	if len(c.Colors.Palette) > 0 {
		entries := make([]inkterm.RGBA, inkterm.Default256.Size())
		for i := range entries {
			entries[i] = inkterm.Default256.At(i)
		}
		for i, s := range c.Colors.Palette {
			if i >= 16 {
				break
			}
			if col, ok := parseHexColor(s); ok {
				entries[i] = col
			}
		}
		opts.Palette = inkterm.NewPalette(entries)
	}

	if c.Colors.MergeRatio != "" {
		if num, den, found := strings.Cut(c.Colors.MergeRatio, "/"); found {
			n, err1 := strconv.Atoi(strings.TrimSpace(num))
			d, err2 := strconv.Atoi(strings.TrimSpace(den))
			if err1 == nil && err2 == nil {
				opts.MergeRatioNum, opts.MergeRatioDen = n, d
			}
		}
	}
	return opts
}

// FontSize26_6 returns the configured font size in 1/64ths of a point.
func (c *Config) FontSize26_6() int {
	size := c.Font.Size
	if size <= 0 {
		size = 12
	}
	return size * 64
}
