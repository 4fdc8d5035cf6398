package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"icon-sync/internal/icon"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
}

// isolate points the user config and home directories at a temp folder so
// no real config.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}

	if want := filepath.Join(home, "Desktop", "Iconer"); cfg.LibraryRoot != want {
		t.Errorf("LibraryRoot = %q, want %q", cfg.LibraryRoot, want)
	}
	if !reflect.DeepEqual(cfg.Sizes, icon.PresetSizes(icon.DefaultPreset)) {
		t.Errorf("Sizes = %v", cfg.Sizes)
	}
	if cfg.Debounce != 400*time.Millisecond || cfg.ScanInterval != 10*time.Minute {
		t.Errorf("Debounce = %v, ScanInterval = %v", cfg.Debounce, cfg.ScanInterval)
	}
	if !cfg.KeepAlpha || !cfg.Autocrop || !cfg.RemoveOrphans || cfg.Overwrite {
		t.Errorf("unexpected switches: %+v", cfg)
	}
	if cfg.OrphanAction != "delete" || cfg.Rasterizer != RasterizerOKSVG {
		t.Errorf("OrphanAction = %q, Rasterizer = %q", cfg.OrphanAction, cfg.Rasterizer)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want none", cfg.ConfigFile)
	}
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "icon-sync.yaml")
	content := `
library_root: ` + filepath.Join(home, "lib") + `
size_preset: "16-64"
padding: tight
orphan_action: trash
debounce: 1s
watch_folders:
  - /in/a
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ICONSYNC_SCAN_INTERVAL", "30s")
	t.Setenv("ICONSYNC_SUFFIX", "_icon")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if want := []int{16, 24, 32, 48, 64}; !reflect.DeepEqual(cfg.Sizes, want) {
		t.Errorf("Sizes = %v, want %v", cfg.Sizes, want)
	}
	if cfg.Padding != "tight" || cfg.OrphanAction != "quarantine" {
		t.Errorf("Padding = %q, OrphanAction = %q", cfg.Padding, cfg.OrphanAction)
	}
	if cfg.Debounce != time.Second || cfg.ScanInterval != 30*time.Second {
		t.Errorf("Debounce = %v, ScanInterval = %v", cfg.Debounce, cfg.ScanInterval)
	}
	if cfg.Suffix != "_icon" {
		t.Errorf("Suffix = %q", cfg.Suffix)
	}
	if !reflect.DeepEqual(cfg.WatchFolders, []string{"/in/a"}) {
		t.Errorf("WatchFolders = %v", cfg.WatchFolders)
	}
	if want := filepath.Join(home, "lib", "Icon Images", "Icons"); cfg.IconsDir() != want {
		t.Errorf("IconsDir() = %q, want %q", cfg.IconsDir(), want)
	}
}

func TestLoadConfig_ExplicitSizes(t *testing.T) {
	isolate(t)
	t.Setenv("ICONSYNC_SIZES", "48, 16,32")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{16, 32, 48}; !reflect.DeepEqual(cfg.Sizes, want) {
		t.Errorf("Sizes = %v, want %v", cfg.Sizes, want)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	home := isolate(t)

	if _, err := LoadConfig(filepath.Join(home, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}

	t.Setenv("ICONSYNC_SIZES", "big")
	if _, err := LoadConfig(""); err == nil {
		t.Error("expected an error for unparseable sizes")
	}
}

type fakeSettings struct {
	root    string
	folders []string
}

func (f fakeSettings) LibraryRoot() (string, error)    { return f.root, nil }
func (f fakeSettings) WatchFolders() ([]string, error) { return f.folders, nil }

func TestApplySettings(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		stored      fakeSettings
		wantRoot    string
		wantFolders []string
	}{
		{
			name:        "stored root wins",
			cfg:         Config{LibraryRoot: "/default", WatchFolders: []string{"/a"}},
			stored:      fakeSettings{root: "/chosen", folders: []string{"/a", "/b"}},
			wantRoot:    "/chosen",
			wantFolders: []string{"/a", "/b"},
		},
		{
			name:        "nothing stored",
			cfg:         Config{LibraryRoot: "/default"},
			stored:      fakeSettings{},
			wantRoot:    "/default",
			wantFolders: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := cfg.ApplySettings(tt.stored); err != nil {
				t.Fatal(err)
			}
			if cfg.LibraryRoot != tt.wantRoot {
				t.Errorf("LibraryRoot = %q, want %q", cfg.LibraryRoot, tt.wantRoot)
			}
			if !reflect.DeepEqual(cfg.WatchFolders, tt.wantFolders) {
				t.Errorf("WatchFolders = %v, want %v", cfg.WatchFolders, tt.wantFolders)
			}
		})
	}
}

func TestMaintenanceNeverOverwrites(t *testing.T) {
	cfg := Config{LibraryRoot: "/lib", Overwrite: true, Padding: "extra", Sizes: []int{16}}
	m := cfg.Maintenance()
	if m.Options.Overwrite {
		t.Error("maintenance config must not force reconversion")
	}
	if m.ImagesDir != filepath.Join("/lib", "Icon Images") || m.Options.Padding != "extra" {
		t.Errorf("Maintenance() = %+v", m)
	}
	if !cfg.EncodeOptions().Overwrite {
		t.Error("EncodeOptions() dropped overwrite")
	}
}

func TestEmptyLibraryRoot(t *testing.T) {
	cfg := Config{}
	if cfg.ImagesDir() != "" || cfg.IconsDir() != "" {
		t.Errorf("ImagesDir() = %q, IconsDir() = %q", cfg.ImagesDir(), cfg.IconsDir())
	}
}

func TestSetupDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{LibraryRoot: filepath.Join(root, "lib"), StateDir: filepath.Join(root, "state")}

	if err := SetupDirectories(cfg); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{cfg.StateDir, cfg.ImagesDir(), cfg.IconsDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.StateDir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write test file left behind")
	}
}

func TestSetupDirectories_StateIsFile(t *testing.T) {
	root := t.TempDir()
	state := filepath.Join(root, "state")
	if err := os.WriteFile(state, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SetupDirectories(&Config{StateDir: state}); err == nil {
		t.Error("expected an error when the state path is a file")
	}
}

func TestNewRasterizer(t *testing.T) {
	if _, ok := NewRasterizer(RasterizerOKSVG).(icon.SVGRasterizer); !ok {
		t.Error("oksvg did not return the SVG rasterizer")
	}
	if r := NewRasterizer(RasterizerNone); r != nil {
		t.Errorf("none returned %T", r)
	}
	if r := NewRasterizer("cairo"); r != nil {
		t.Errorf("unknown name returned %T", r)
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.HandleFunc("/healthz", noop).Methods(http.MethodGet)
	r.HandleFunc("/api/maintenance", noop).Methods(http.MethodPost)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatal(err)
	}
	want := []RouteInfo{
		{Method: http.MethodPost, Path: "/api/maintenance"},
		{Method: http.MethodGet, Path: "/healthz"},
	}
	if !reflect.DeepEqual(routes, want) {
		t.Errorf("GetRoutes() = %+v, want %+v", routes, want)
	}
}
