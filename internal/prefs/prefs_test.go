package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p := Load("")
	if p != Default() {
		t.Fatalf("Load = %+v, want %+v", p, Default())
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "inkreader")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	body := "theme = \"Kanagawa\"\nfull_help = true\nlog_lines = 12\n"
	if err := os.WriteFile(filepath.Join(dir, "sim.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p := Load("")
	if p.Theme != "Kanagawa" || !p.FullHelp || p.LogLines != 12 {
		t.Fatalf("Load = %+v", p)
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "sim.toml")

	want := Prefs{Theme: "Kanagawa", FullHelp: true, LogLines: 3}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if got := Load(path); got != want {
		t.Fatalf("Load after Save = %+v, want %+v", got, want)
	}
}

func TestLoad_SanitizesValues(t *testing.T) {
	cases := map[string]Prefs{
		"theme = \"\"\n":        {Theme: defaultTheme, LogLines: defaultLogLines},
		"log_lines = -4\n":      {Theme: defaultTheme, LogLines: 0},
		"log_lines = 1000\n":    {Theme: defaultTheme, LogLines: maxLogLines},
		"theme = [broken\n":     Default(),
		"full_help = \"yes\"\n": Default(),
	}
	for body, want := range cases {
		path := filepath.Join(t.TempDir(), "sim.toml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if got := Load(path); got != want {
			t.Fatalf("Load(%q) = %+v, want %+v", body, got, want)
		}
	}
}
