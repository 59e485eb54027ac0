package docstore

import (
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/dDocs/lib/backup"
	"github.com/ValentinKolb/dDocs/lib/cache"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/afero"
	"io/fs"
	"path/filepath"
	"time"
)

const (
	// FormatVersion is written into newly created config files
	FormatVersion = "2.0.0"
	// DefaultMaxFileSize is the largest accepted document (10MB)
	DefaultMaxFileSize = 10 * 1024 * 1024

	DefaultConfigFile = "db.config.json"
	DefaultDataDir    = ".ddocs"
	metadataFile      = ".metadata.json"
)

// --------------------------------------------------------------------------
// Persisted store configuration
// --------------------------------------------------------------------------

// Config holds the store settings. It is read once when the store initializes,
// created from the defaults if the file does not exist and rewritten in place afterwards.
type Config struct {
	Version              string    `json:"version"`
	MaxCacheSize         int       `json:"maxCacheSize"`
	MaxBackups           int       `json:"maxBackups"`
	AutoBackup           bool      `json:"autoBackup"`
	Compression          bool      `json:"compression"`
	PersistCache         bool      `json:"persistCache"` // keep a local mirror of every document
	MaxFileSize          int64     `json:"maxFileSize"`
	SerializeWrites      bool      `json:"serializeWrites"`
	Created              time.Time `json:"created"`
	LastStartup          time.Time `json:"lastStartup"`
	GitHubSync           bool      `json:"githubSync"`
	SeparateCommandFiles bool      `json:"separateCommandFiles"`
}

// DefaultConfig returns the settings used for a new config file
func DefaultConfig() Config {
	return Config{
		Version:              FormatVersion,
		MaxCacheSize:         cache.DefaultCapacity,
		MaxBackups:           backup.DefaultRetention,
		AutoBackup:           true,
		Compression:          true,
		PersistCache:         true,
		MaxFileSize:          DefaultMaxFileSize,
		SerializeWrites:      true,
		GitHubSync:           true,
		SeparateCommandFiles: true,
	}
}

// withDefaults fills zero numeric settings (e.g. of an older config file)
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.MaxCacheSize <= 0 {
		c.MaxCacheSize = def.MaxCacheSize
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = def.MaxBackups
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = def.MaxFileSize
	}
	return c
}

// loadOrCreateConfig reads file or creates it from defaults. LastStartup is set to now
// and the config is written back in both cases.
func loadOrCreateConfig(fsys afero.Fs, file string, defaults Config, now time.Time) (Config, error) {
	var cfg Config
	data, err := afero.ReadFile(fsys, file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = defaults
		cfg.Created = now
		Logger.Infof("Creating config %s", file)
	case err != nil:
		return Config{}, err
	default:
		// settings missing in an older file keep their default
		cfg = defaults
		if err := json.Unmarshal(data, &cfg); err != nil {
			Logger.Warningf("Config %s is corrupt, recreating it: %v", file, err)
			cfg = defaults
			cfg.Created = now
		}
	}

	cfg = cfg.withDefaults()
	cfg.LastStartup = now
	if err := saveConfig(fsys, file, cfg); err != nil {
		Logger.Errorf("Failed to save config %s: %v", file, err)
	}
	return cfg, nil
}

func saveConfig(fsys afero.Fs, file string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(file); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return afero.WriteFile(fsys, file, data, 0o644)
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configure a Store. Zero values select the defaults.
type Options struct {
	// Fs is the local durable storage for config, metadata and mirror (default: the OS filesystem)
	Fs afero.Fs
	// ConfigFile is the path of the persisted Config
	ConfigFile string
	// DataDir holds the mirror and the metadata file
	DataDir string
	// Defaults is used when the config file does not exist yet (default: DefaultConfig())
	Defaults *Config
	// ResyncInterval enables a periodic resync and vacuum (0 disables it)
	ResyncInterval time.Duration
	// Timers receives the latency timers of all remote calls
	Timers gometrics.Registry
	// Clock replaces time.Now
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.ConfigFile == "" {
		o.ConfigFile = DefaultConfigFile
	}
	if o.DataDir == "" {
		o.DataDir = DefaultDataDir
	}
	if o.Defaults == nil {
		def := DefaultConfig()
		o.Defaults = &def
	}
	if o.Timers == nil {
		o.Timers = gometrics.NewRegistry()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

func (o Options) metadataPath() string {
	return filepath.Join(o.DataDir, metadataFile)
}
