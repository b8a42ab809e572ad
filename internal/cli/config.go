package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/raster"
)

// Config holds the run options. The JSON form is the optional third
// positional argument, e.g. '{"verbose": true}'.
type Config struct {
	// Verbose enables info, warning and error logs on stderr.
	Verbose bool `json:"verbose" toml:"verbose" yaml:"verbose"`
	// Concurrency bounds parallel conversions (0 = number of CPUs, <0 = unbounded).
	Concurrency int `json:"concurrency" toml:"concurrency" yaml:"concurrency"`
	// Backend selects the raster backend: "gm" or "native".
	Backend string `json:"backend" toml:"backend" yaml:"backend"`
	// GMBinary overrides the GraphicsMagick executable.
	GMBinary string `json:"gm_binary" toml:"gm_binary" yaml:"gm_binary"`
	// LogFile additionally writes logs to a size-rotated file.
	LogFile string `json:"log_file" toml:"log_file" yaml:"log_file"`
}

// defaultConfig returns the options used when nothing is configured.
func defaultConfig() Config {
	return Config{Backend: raster.BackendGM}
}

// Validate checks option values.
func (c Config) Validate() error {
	if !raster.ValidBackends[c.Backend] {
		return errors.New(errors.ErrCodeInvalidOptions, "invalid backend: %q (must be 'gm' or 'native')", c.Backend)
	}
	return errors.ValidateConcurrency(c.Concurrency)
}

// loadConfigFile overlays the file at path onto cfg.
// The format is chosen by extension: .toml, .yaml/.yml or .json.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOptions, err, "read config %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = decodeJSON(data, cfg)
	default:
		return errors.New(errors.ErrCodeInvalidOptions, "unsupported config format %q (use .toml, .yaml or .json)", filepath.Ext(path))
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOptions, err, "parse config %s", path)
	}
	return nil
}

// parseOptionsJSON overlays a JSON options object onto cfg.
// Keys that are absent keep their current value; unknown keys are ignored.
func parseOptionsJSON(s string, cfg *Config) error {
	if err := decodeJSON([]byte(s), cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOptions, err, "invalid options JSON %q", s)
	}
	return nil
}

func decodeJSON(data []byte, cfg *Config) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return errors.New(errors.ErrCodeInvalidOptions, "options must be a JSON object")
	}
	return json.Unmarshal(data, cfg)
}

// configDir returns the config directory using XDG standard (~/.config/isometric/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// defaultConfigFiles are looked up in configDir, in order.
var defaultConfigFiles = []string{"config.toml", "config.yaml", "config.yml"}

// defaultConfigPath returns the first default config file that exists, or "".
func defaultConfigPath() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	for _, name := range defaultConfigFiles {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

// flagValues receives the command-line flags.
type flagValues struct {
	configPath  string
	verbose     bool
	concurrency int
	backend     string
	gmBinary    string
	logFile     string
}

// register binds the flags to cmd. All but --concurrency are inherited by
// subcommands.
func (fv *flagValues) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&fv.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&fv.configPath, "config", "", "config file (.toml, .yaml or .json; default ~/.config/isometric/config.toml)")
	pf.StringVar(&fv.backend, "backend", raster.BackendGM, "raster backend: gm or native")
	pf.StringVar(&fv.gmBinary, "gm-binary", "", "GraphicsMagick executable (default \"gm\" from PATH)")
	pf.StringVar(&fv.logFile, "log-file", "", "also write logs to this size-rotated file")
	cmd.Flags().IntVar(&fv.concurrency, "concurrency", 0, "max parallel conversions in directory mode (0 = CPUs, <0 = unbounded)")
}

// resolveConfig merges, in increasing precedence: defaults, the config file,
// the options JSON, and flags that were set explicitly.
func resolveConfig(cmd *cobra.Command, optionsJSON string, fv *flagValues) (Config, error) {
	cfg := defaultConfig()

	configPath := fv.configPath
	if configPath == "" {
		configPath = defaultConfigPath()
	}
	if configPath != "" {
		if err := loadConfigFile(configPath, &cfg); err != nil {
			return Config{}, err
		}
	}
	if optionsJSON != "" {
		if err := parseOptionsJSON(optionsJSON, &cfg); err != nil {
			return Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = fv.verbose
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = fv.concurrency
	}
	if flags.Changed("backend") {
		cfg.Backend = fv.backend
	}
	if flags.Changed("gm-binary") {
		cfg.GMBinary = fv.gmBinary
	}
	if flags.Changed("log-file") {
		cfg.LogFile = fv.logFile
	}

	if cfg.Backend == "" {
		cfg.Backend = raster.BackendGM
	}
	return cfg, cfg.Validate()
}
