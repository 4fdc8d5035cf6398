package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"

	"icon-sync/internal/history"
	"icon-sync/internal/icon"
	"icon-sync/internal/logging"
	"icon-sync/internal/maintenance"
	"icon-sync/internal/orphans"
	"icon-sync/internal/vipsraster"
	"icon-sync/internal/watcher"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Library layout below the library root.
const (
	ImagesFolderName = "Icon Images"
	IconsFolderName  = "Icons"
)

// Rasterizer names accepted by the rasterizer key.
const (
	RasterizerOKSVG = "oksvg"
	RasterizerVips  = "vips"
	RasterizerNone  = "none"
)

// EnvPrefix prefixes every environment override, e.g. ICONSYNC_LIBRARY_ROOT.
const EnvPrefix = "ICONSYNC"

// Config holds all application configuration
type Config struct {
	LibraryRoot   string        `mapstructure:"library_root"`
	SizePreset    string        `mapstructure:"size_preset"`
	SizeList      string        `mapstructure:"sizes"`
	Padding       string        `mapstructure:"padding"`
	Overwrite     bool          `mapstructure:"overwrite"`
	Recursive     bool          `mapstructure:"recursive"`
	KeepAlpha     bool          `mapstructure:"keep_alpha"`
	Autocrop      bool          `mapstructure:"autocrop"`
	Suffix        string        `mapstructure:"suffix"`
	OrphanAction  string        `mapstructure:"orphan_action"`
	RemoveOrphans bool          `mapstructure:"remove_orphans"`
	Debounce      time.Duration `mapstructure:"debounce"`
	ScanInterval  time.Duration `mapstructure:"scan_interval"`
	Rasterizer    string        `mapstructure:"rasterizer"`
	StatusAddr    string        `mapstructure:"status_addr"`
	StateDir      string        `mapstructure:"state_dir"`
	WatchFolders  []string      `mapstructure:"watch_folders"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `mapstructure:"-"`
	// Sizes is the resolved frame size list.
	Sizes []int `mapstructure:"-"`
}

// ImagesDir is the source image library.
func (c *Config) ImagesDir() string {
	if c.LibraryRoot == "" {
		return ""
	}
	return filepath.Join(c.LibraryRoot, ImagesFolderName)
}

// IconsDir is where icons are written.
func (c *Config) IconsDir() string {
	if c.LibraryRoot == "" {
		return ""
	}
	return filepath.Join(c.ImagesDir(), IconsFolderName)
}

// SettingsDir holds the settings and history databases.
func (c *Config) SettingsDir() string {
	return c.StateDir
}

// HistoryPath is the pass journal file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StateDir, history.FileName)
}

// EncodeOptions converts the configuration into encoder options.
func (c *Config) EncodeOptions() icon.Options {
	return icon.Options{
		Overwrite: c.Overwrite,
		KeepAlpha: c.KeepAlpha,
		Autocrop:  c.Autocrop,
		Padding:   c.Padding,
		Suffix:    c.Suffix,
	}
}

// Maintenance converts the configuration into an orchestrator config.
// Maintenance passes never force-reconvert, whatever overwrite says.
func (c *Config) Maintenance() maintenance.Config {
	opts := c.EncodeOptions()
	opts.Overwrite = false
	return maintenance.Config{
		ImagesDir:     c.ImagesDir(),
		IconsDir:      c.IconsDir(),
		Sizes:         c.Sizes,
		Options:       opts,
		RemoveOrphans: c.RemoveOrphans,
		OrphanAction:  c.OrphanAction,
	}
}

// SettingsReader is the part of the settings store the configuration reads.
type SettingsReader interface {
	LibraryRoot() (string, error)
	WatchFolders() ([]string, error)
}

// ApplySettings lets a library root chosen at runtime win over the configured
// default and adds the stored watched folders.
func (c *Config) ApplySettings(s SettingsReader) error {
	root, err := s.LibraryRoot()
	if err != nil {
		return fmt.Errorf("read library root: %w", err)
	}
	if root != "" {
		c.LibraryRoot = root
	}

	folders, err := s.WatchFolders()
	if err != nil {
		return fmt.Errorf("read watched folders: %w", err)
	}
	seen := make(map[string]struct{}, len(c.WatchFolders))
	for _, f := range c.WatchFolders {
		seen[filepath.Clean(f)] = struct{}{}
	}
	for _, f := range folders {
		if _, ok := seen[filepath.Clean(f)]; !ok {
			c.WatchFolders = append(c.WatchFolders, f)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("library_root", defaultLibraryRoot())
	v.SetDefault("size_preset", icon.DefaultPreset)
	v.SetDefault("sizes", "")
	v.SetDefault("padding", icon.PaddingBalanced)
	v.SetDefault("overwrite", false)
	v.SetDefault("recursive", false)
	v.SetDefault("keep_alpha", true)
	v.SetDefault("autocrop", true)
	v.SetDefault("suffix", "")
	v.SetDefault("orphan_action", orphans.ActionDelete)
	v.SetDefault("remove_orphans", true)
	v.SetDefault("debounce", watcher.DefaultDebounce)
	v.SetDefault("scan_interval", 10*time.Minute)
	v.SetDefault("rasterizer", RasterizerOKSVG)
	v.SetDefault("status_addr", "127.0.0.1:8765")
	v.SetDefault("state_dir", defaultStateDir())
	v.SetDefault("watch_folders", []string{})
}

func defaultLibraryRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Desktop", "Iconer")
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "icon-sync")
	}
	return ".icon-sync"
}

// LoadConfig reads config.yaml (configFile when set, otherwise the state
// directory or the working directory), applies ICONSYNC_* environment
// overrides and defaults, and resolves paths and frame sizes.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultStateDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	// A comma list from the environment arrives as one element.
	if len(cfg.WatchFolders) == 1 && strings.Contains(cfg.WatchFolders[0], ",") {
		cfg.WatchFolders = splitList(cfg.WatchFolders[0])
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolve validates values and fills derived fields.
func (c *Config) resolve() error {
	if c.SizeList != "" {
		sizes, err := icon.ParseSizes(c.SizeList)
		if err != nil {
			return fmt.Errorf("invalid sizes %q: %w", c.SizeList, err)
		}
		c.Sizes = sizes
	} else {
		c.Sizes = icon.PresetSizes(c.SizePreset)
	}

	c.OrphanAction = orphans.NormalizeAction(c.OrphanAction)
	c.Rasterizer = strings.ToLower(strings.TrimSpace(c.Rasterizer))

	if c.Debounce <= 0 {
		logging.Warn("Invalid debounce %v, using default: %v", c.Debounce, watcher.DefaultDebounce)
		c.Debounce = watcher.DefaultDebounce
	}
	if c.ScanInterval < 0 {
		c.ScanInterval = 0
	}

	var err error
	if c.LibraryRoot != "" {
		if c.LibraryRoot, err = filepath.Abs(c.LibraryRoot); err != nil {
			return fmt.Errorf("failed to resolve library root path: %w", err)
		}
	}
	if c.StateDir, err = filepath.Abs(c.StateDir); err != nil {
		return fmt.Errorf("failed to resolve state directory path: %w", err)
	}
	return nil
}

// SetupDirectories creates the state directory (required) and the library
// layout. A library that cannot be created is reported but not fatal so that
// relocate can still repair it.
func SetupDirectories(cfg *Config) error {
	if err := ensureDirectory(cfg.StateDir, "state"); err != nil {
		return fmt.Errorf("state directory error: %w", err)
	}
	if err := testWriteAccess(cfg.StateDir); err != nil {
		return fmt.Errorf("state directory is not writable (required for settings and history): %w", err)
	}

	if cfg.LibraryRoot == "" {
		logging.Warn("  No library root configured")
		return nil
	}
	for _, d := range []struct{ path, name string }{
		{cfg.ImagesDir(), "images"},
		{cfg.IconsDir(), "icons"},
	} {
		if err := ensureDirectory(d.path, d.name); err != nil {
			logging.Warn("  %s directory issue: %v", d.name, err)
		}
	}
	return nil
}

// NewRasterizer returns the SVG rasterizer named by the configuration. "none"
// (or an unknown name) returns nil, which makes SVG sources fail with a
// message telling the user how to enable one.
func NewRasterizer(name string) icon.Rasterizer {
	switch name {
	case RasterizerOKSVG, "":
		return icon.SVGRasterizer{}
	case RasterizerVips:
		if err := vipsraster.Init(); err != nil {
			logging.Warn("  libvips unavailable, falling back to oksvg: %v", err)
			return icon.SVGRasterizer{}
		}
		return vipsraster.Rasterizer{}
	case RasterizerNone:
		return nil
	default:
		logging.Warn("  Unknown rasterizer %q; SVG sources will be skipped", name)
		return nil
	}
}

// ShutdownRasterizer releases resources held by the named rasterizer.
func ShutdownRasterizer(name string) {
	if name == RasterizerVips {
		vipsraster.Shutdown()
	}
}

// LogConfig prints the banner, system information and the resolved
// configuration.
func LogConfig(cfg *Config) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if cfg.ConfigFile != "" {
		logging.Info("  Config file:      %s", cfg.ConfigFile)
	} else {
		logging.Info("  Config file:      (none, using defaults and %s_* environment)", EnvPrefix)
	}
	logging.Info("  LIBRARY_ROOT:     %s", cfg.LibraryRoot)
	logging.Info("  STATE_DIR:        %s", cfg.StateDir)
	logging.Info("  SIZES:            %v", cfg.Sizes)
	logging.Info("  PADDING:          %s", cfg.Padding)
	logging.Info("  KEEP_ALPHA:       %v", cfg.KeepAlpha)
	logging.Info("  AUTOCROP:         %v", cfg.Autocrop)
	logging.Info("  SUFFIX:           %q", cfg.Suffix)
	logging.Info("  REMOVE_ORPHANS:   %v (%s)", cfg.RemoveOrphans, cfg.OrphanAction)
	logging.Info("  DEBOUNCE:         %v", cfg.Debounce)
	logging.Info("  SCAN_INTERVAL:    %v", cfg.ScanInterval)
	logging.Info("  RASTERIZER:       %s", cfg.Rasterizer)
	logging.Info("  STATUS_ADDR:      %s", cfg.StatusAddr)
	logging.Info("  WATCH_FOLDERS:    %d", len(cfg.WatchFolders))
	logging.Info("  LOG_LEVEL:        %s", logging.GetLevel())
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Images directory: %s", cfg.ImagesDir())
	logging.Info("  Icons directory:  %s", cfg.IconsDir())
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes, err
}

// LogHTTPRoutes logs the status API routes at debug level.
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STATUS API SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// LogAgentStarted logs the running agent's endpoints.
func LogAgentStarted(cfg *Config, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("AGENT STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startupDuration)
	logging.Info("  Watching:        %s", cfg.ImagesDir())
	if cfg.StatusAddr != "" {
		logging.Info("  Status API:      http://%s/api/status", cfg.StatusAddr)
		logging.Info("  Metrics:         http://%s/metrics", cfg.StatusAddr)
	} else {
		logging.Info("  Status API:      DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func printBanner() {
	banner := `
------------------------------------------------------------
    _
   (_)________  ____        _______  ______  _____
  / / ___/ __ \/ __ \______/ ___/ / / / __ \/ ___/
 / / /__/ /_/ / / / /_____(__  ) /_/ / / / / /__
/_/\___/\____/_/ /_/     /____/\__, /_/ /_/\___/
                              /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
