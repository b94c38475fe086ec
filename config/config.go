// Package config loads portforge's INI configuration file: a
// [Global Configuration] section selecting a profile, and one section
// per profile carrying the recognized Directory_*/Number_of_builders
// options (spec §6 "Configuration file").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sys/unix"
	"gopkg.in/ini.v1"
)

// Config holds all portforge configuration, resolved from defaults, the
// selected profile section, and CLI overrides (in that priority order,
// lowest to highest).
type Config struct {
	// Paths
	ConfigPath     string
	DPortsPath     string
	RepositoryPath string
	BuildBase      string
	DistFilesPath  string
	OptionsPath    string
	PackagesPath   string
	LogsPath       string
	SystemPath     string
	CCachePath     string

	OperatingSystem string

	// Build settings
	MaxWorkers   int
	MaxJobs      int
	SlowStart    int
	// CancelGrace is how long the scheduler waits for a slot to finish
	// tearing down its sandbox after a CANCEL before escalating to
	// SIGTERM/SIGKILL on the slot's process group.
	CancelGrace time.Duration
	NumaMask     string
	UseSSCCBase  bool
	UseUsrSrc    bool
	UseCCache    bool
	UseTmpfs     bool
	UseVKernel   bool
	UsePKGDepend bool

	// Sizes
	TmpfsWorkSize      string
	TmpfsLocalbaseSize string
	TmpfsUsrLocalSize  string

	// Display / repo behavior
	DisplayWithNCurses bool
	// DisplayMode selects which statusbus.Subscriber cmd/ wires up as the
	// interactive UI: "stdout" (ui/stdout, the default), "ncurses"
	// (ui/ncurses), or "tui" (ui/tui). DisplayWithNCurses remains as a
	// back-compat boolean: setting it true with DisplayMode left unset is
	// equivalent to DisplayMode=ncurses.
	DisplayMode      string
	LeveragePrebuilt bool

	// Behavior
	Debug      bool
	Force      bool
	YesAll     bool
	DevMode    bool
	CheckPlist bool
	DisableUI  bool

	// Profile
	Profile string

	// Migration holds the [Migration] settings read from the config
	// file; no code in this module acts on them after loading.
	Migration MigrationConfig
	// Database locates the bbolt build-record/package-index/fingerprint
	// store (builddb.OpenDB).
	Database DatabaseConfig
}

// MigrationConfig holds the legacy CRC-index migration switches. They are
// parsed and stored only; service.Service performs no import on startup.
type MigrationConfig struct {
	AutoMigrate  bool
	BackupLegacy bool
}

// DatabaseConfig locates the bbolt-backed build database.
type DatabaseConfig struct {
	Path       string
	AutoVacuum bool
}

// configFileName is the INI file portforge reads from ConfigPath.
const configFileName = "portforge.ini"

// LoadConfig loads configuration from configDir/portforge.ini (falling
// back to built-in defaults for anything the file or profile doesn't
// set) and selects the named profile section.
func LoadConfig(configDir string, profile string) (*Config, error) {
	cfg := &Config{
		MaxWorkers:         runtime.NumCPU() / 2,
		MaxJobs:            runtime.NumCPU(),
		SlowStart:          0,
		CancelGrace:        30 * time.Second,
		Profile:            profile,
		SystemPath:         "/",
		UseUsrSrc:          false,
		UseCCache:          false,
		UseTmpfs:           true,
		UsePKGDepend:       true,
		TmpfsWorkSize:      "64g",
		TmpfsLocalbaseSize: "16g",
		TmpfsUsrLocalSize:  "16g",
	}

	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}

	if configDir == "" {
		if _, err := os.Stat("/etc/portforge"); err == nil {
			configDir = "/etc/portforge"
		} else if _, err := os.Stat("/usr/local/etc/portforge"); err == nil {
			configDir = "/usr/local/etc/portforge"
		} else {
			configDir = "/etc/portforge"
		}
	}
	cfg.ConfigPath = configDir

	configFile := filepath.Join(configDir, configFileName)
	if _, err := os.Stat(configFile); err == nil {
		if err := cfg.parseINI(configFile); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cfg.BuildBase == "" {
		cfg.BuildBase = "/build"
	}
	if cfg.DPortsPath == "" {
		cfg.DPortsPath = "/usr/dports"
		if _, err := os.Stat(cfg.DPortsPath); err != nil {
			if _, err := os.Stat("/usr/ports"); err == nil {
				cfg.DPortsPath = "/usr/ports"
			}
		}
	}
	if cfg.RepositoryPath == "" {
		cfg.RepositoryPath = cfg.BuildBase + "/packages"
	}
	if cfg.DistFilesPath == "" {
		cfg.DistFilesPath = cfg.BuildBase + "/distfiles"
	}
	if cfg.OptionsPath == "" {
		cfg.OptionsPath = cfg.BuildBase + "/options"
	}
	if cfg.PackagesPath == "" {
		cfg.PackagesPath = cfg.RepositoryPath
	}
	if cfg.LogsPath == "" {
		cfg.LogsPath = cfg.BuildBase + "/logs"
	}
	if cfg.CCachePath == "" {
		cfg.CCachePath = cfg.BuildBase + "/ccache"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = cfg.BuildBase + "/portforge.db"
	}
	if cfg.DisplayMode == "" {
		if cfg.DisplayWithNCurses {
			cfg.DisplayMode = "ncurses"
		} else {
			cfg.DisplayMode = "stdout"
		}
	}

	return cfg, nil
}

// parseINI reads filename via ini.v1: the [Global Configuration] section
// selects cfg.Profile when the caller didn't already pin one, and every
// key under the selected profile's section is applied through
// setConfigValue so option names stay exactly as documented in spec §6.
func (cfg *Config) parseINI(filename string) error {
	f, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, filename)
	if err != nil {
		return fmt.Errorf("load ini: %w", err)
	}

	if cfg.Profile == "" {
		if global, err := f.GetSection("Global Configuration"); err == nil {
			if key := global.Key("profile"); key != nil && key.String() != "" {
				cfg.Profile = key.String()
			}
		}
	}

	for _, section := range f.Sections() {
		name := section.Name()
		if name == ini.DefaultSection || strings.EqualFold(name, "Global Configuration") {
			continue
		}
		if cfg.Profile != "" && !strings.EqualFold(name, cfg.Profile) {
			continue
		}
		for _, key := range section.Keys() {
			cfg.setConfigValue(key.Name(), key.String())
		}
	}

	return nil
}

func (cfg *Config) setConfigValue(key, value string) {
	norm := strings.ToLower(key)
	norm = strings.ReplaceAll(norm, "_", "")
	norm = strings.ReplaceAll(norm, " ", "")

	switch norm {
	case "numberofbuilders", "builders", "workers":
		if n, err := parseAutoInt(value); err == nil {
			if n <= 0 {
				n = max(1, runtime.NumCPU()/2)
			}
			cfg.MaxWorkers = n
		}
	case "maxjobsperbuilder", "maxjobs", "jobs":
		if n, err := parseAutoInt(value); err == nil {
			if n == 0 {
				n = runtime.NumCPU()
			}
			cfg.MaxJobs = n
		}
	case "operatingsystem":
		cfg.OperatingSystem = value
	case "directorypackages", "packages":
		cfg.PackagesPath = value
	case "directoryrepository", "repository":
		cfg.RepositoryPath = value
	case "directorybuildbase", "buildbase":
		cfg.BuildBase = value
	case "directoryportsdir", "portsdir", "dportsdir":
		cfg.DPortsPath = value
	case "directorydistfiles", "distfiles":
		cfg.DistFilesPath = value
	case "directoryoptions", "options":
		cfg.OptionsPath = value
	case "directorylogs", "logs":
		cfg.LogsPath = value
	case "directorysystem", "systempath":
		cfg.SystemPath = value
	case "directoryccache", "ccachedir", "ccache":
		cfg.CCachePath = value
		cfg.UseCCache = true
	case "useccache":
		cfg.UseCCache = parseBool(value)
	case "useusrsrc":
		cfg.UseUsrSrc = parseBool(value)
	case "usetmpfs", "tmpfsworkdir":
		cfg.UseTmpfs = parseBool(value)
	case "usevkernel":
		cfg.UseVKernel = parseBool(value)
	case "usepkgdepend":
		cfg.UsePKGDepend = parseBool(value)
	case "tmpfslocalbase":
		cfg.TmpfsLocalbaseSize = value
	case "tmpfsworksize":
		cfg.TmpfsWorkSize = value
	case "tmpfslocalbasesize":
		cfg.TmpfsLocalbaseSize = value
	case "tmpfsusrlocalsize":
		cfg.TmpfsUsrLocalSize = value
	case "numamask":
		cfg.NumaMask = value
	case "displaywithncurses":
		cfg.DisplayWithNCurses = parseBool(value)
	case "displaymode":
		cfg.DisplayMode = strings.ToLower(strings.TrimSpace(value))
	case "leverageprebuilt":
		cfg.LeveragePrebuilt = parseBool(value)
	case "databasepath":
		cfg.Database.Path = value
	case "databaseautovacuum":
		cfg.Database.AutoVacuum = parseBool(value)
	case "automigrate":
		cfg.Migration.AutoMigrate = parseBool(value)
	case "backuplegacy":
		cfg.Migration.BackupLegacy = parseBool(value)
	case "cancelgrace", "cancelgraceseconds":
		if n, err := parseAutoInt(value); err == nil && n > 0 {
			cfg.CancelGrace = time.Duration(n) * time.Second
		}
	}
}

// parseAutoInt parses value as an integer, accepting "auto" (and the
// empty string) as 0 — the sentinel spec §6 defines for "derive from
// CPU count".
func parseAutoInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "auto") {
		return 0, nil
	}
	var n int
	_, err := fmt.Sscanf(value, "%d", &n)
	return n, err
}

func parseBool(value string) bool {
	value = strings.ToLower(value)
	return value == "yes" || value == "true" || value == "1" || value == "on"
}

// WriteDefaultConfig writes a default configuration file via ini.v1,
// laid out the way the teacher's hand-rolled writer did (one profile
// section named "Default Configuration" selected by Global
// Configuration's profile key).
func WriteDefaultConfig(filename string, cfg *Config) error {
	f := ini.Empty()

	global, err := f.NewSection("Global Configuration")
	if err != nil {
		return err
	}
	global.NewKey("profile", "Default Configuration")

	section, err := f.NewSection("Default Configuration")
	if err != nil {
		return err
	}
	section.NewKey("Number_of_builders", fmt.Sprintf("%d", cfg.MaxWorkers))
	section.NewKey("Max_jobs_per_builder", fmt.Sprintf("%d", cfg.MaxJobs))
	section.NewKey("Directory_packages", cfg.PackagesPath)
	section.NewKey("Directory_repository", cfg.RepositoryPath)
	section.NewKey("Directory_buildbase", cfg.BuildBase)
	section.NewKey("Directory_portsdir", cfg.DPortsPath)
	section.NewKey("Directory_distfiles", cfg.DistFilesPath)
	section.NewKey("Directory_options", cfg.OptionsPath)
	section.NewKey("Directory_logs", cfg.LogsPath)
	section.NewKey("Directory_system", cfg.SystemPath)
	section.NewKey("Tmpfs_workdir", fmt.Sprintf("%v", cfg.UseTmpfs))
	section.NewKey("Tmpfs_localbase", cfg.TmpfsLocalbaseSize)
	section.NewKey("Display_with_ncurses", fmt.Sprintf("%v", cfg.DisplayWithNCurses))
	section.NewKey("leverage_prebuilt", fmt.Sprintf("%v", cfg.LeveragePrebuilt))
	if cfg.UseCCache {
		section.NewKey("Directory_ccache", cfg.CCachePath)
	}
	if cfg.Database.Path != "" {
		section.NewKey("Database_path", cfg.Database.Path)
	}

	return f.SaveTo(filename)
}

// Validate checks configuration validity, creating required directories
// that don't yet exist.
func (cfg *Config) Validate() error {
	requiredDirs := map[string]string{
		"BuildBase":      cfg.BuildBase,
		"DPortsPath":     cfg.DPortsPath,
		"RepositoryPath": cfg.RepositoryPath,
		"DistFilesPath":  cfg.DistFilesPath,
	}

	for name, path := range requiredDirs {
		if path == "" {
			return fmt.Errorf("%s is not configured", name)
		}

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(path, 0755); err != nil {
					return fmt.Errorf("%s directory %s cannot be created: %w", name, path, err)
				}
			} else {
				return fmt.Errorf("%s directory %s: %w", name, path, err)
			}
		} else if !info.IsDir() {
			return fmt.Errorf("%s path %s is not a directory", name, path)
		}
	}

	if cfg.MaxWorkers < 1 {
		return fmt.Errorf("MaxWorkers must be at least 1")
	}
	if cfg.MaxWorkers > 1024 {
		return fmt.Errorf("MaxWorkers is too large (max 1024)")
	}

	return nil
}

// GetSystemInfo returns the host's kernel name/release/machine and CPU
// count, used to fill the Operating_system default and size worker
// pools when the config doesn't pin Number_of_builders.
func GetSystemInfo() (osname, osversion, arch string, ncpus int) {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err == nil {
		osname = string(utsname.Sysname[:])
		osversion = string(utsname.Release[:])
		arch = string(utsname.Machine[:])
		osname = strings.TrimRight(osname, "\x00")
		osversion = strings.TrimRight(osversion, "\x00")
		arch = strings.TrimRight(arch, "\x00")
	}

	ncpus = runtime.NumCPU()

	return
}
