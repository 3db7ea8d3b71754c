package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/staffdir/internal/paths"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// Config keys, shared by config.yaml and STAFFDIR_* environment variables.
const (
	cfgKeyBackend           = "backend"
	cfgKeyEndpoint          = "endpoint"
	cfgKeyList              = "list"
	cfgKeyDataDir           = "data_dir"
	cfgKeyPageSize          = "page_size"
	cfgKeyTimeout           = "timeout"
	cfgKeyEnrichConcurrency = "enrich_concurrency"
	cfgKeyLogMode           = "log_mode"

	envPrefix = "STAFFDIR"
)

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend           string `yaml:"backend"`
	Endpoint          string `yaml:"endpoint,omitempty"`
	List              string `yaml:"list"`
	DataDir           string `yaml:"data_dir,omitempty"`
	PageSize          int    `yaml:"page_size"`
	Timeout           string `yaml:"timeout"`
	EnrichConcurrency int    `yaml:"enrich_concurrency"`
	LogMode           string `yaml:"log_mode"`
}

func defaultConfigFile() configFile {
	return configFile{
		Backend:           types.BackendSQLite,
		List:              types.DefaultList,
		PageSize:          types.DefaultPageSize,
		Timeout:           types.DefaultTimeout.String(),
		EnrichConcurrency: types.DefaultEnrichConcurrency,
		LogMode:           types.DefaultLogMode,
	}
}

// newViper returns a viper instance with defaults and STAFFDIR_* env
// bindings, reading config.yaml from configDir when present. A missing
// config.yaml is not an error.
func newViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	def := defaultConfigFile()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyList, def.List)
	v.SetDefault(cfgKeyPageSize, def.PageSize)
	v.SetDefault(cfgKeyTimeout, def.Timeout)
	v.SetDefault(cfgKeyEnrichConcurrency, def.EnrichConcurrency)
	v.SetDefault(cfgKeyLogMode, def.LogMode)

	// data_dir is left unbound: paths.ResolveDataDir ranks the config
	// file above STAFFDIR_DATA_DIR.
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{
		cfgKeyBackend, cfgKeyEndpoint, cfgKeyList, cfgKeyPageSize,
		cfgKeyTimeout, cfgKeyEnrichConcurrency, cfgKeyLogMode,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(paths.ConfigFile(configDir)); os.IsNotExist(statErr) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// loadConfig resolves the config and data directories and builds a
// validated types.Config.
func loadConfig() (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return types.Config{}, sysErrorf("resolve config dir: %w", err)
	}
	v, err := newViper(configDir)
	if err != nil {
		return types.Config{}, err
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, sysErrorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend:           v.GetString(cfgKeyBackend),
		Endpoint:          v.GetString(cfgKeyEndpoint),
		List:              v.GetString(cfgKeyList),
		DataDir:           dataDir,
		PageSize:          v.GetInt(cfgKeyPageSize),
		Timeout:           v.GetDuration(cfgKeyTimeout),
		EnrichConcurrency: v.GetInt(cfgKeyEnrichConcurrency),
		LogMode:           v.GetString(cfgKeyLogMode),
	}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml from cf if the file does not
// exist. It reports whether a file was written.
func writeConfigIfMissing(path string, cf configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if _, err := time.ParseDuration(cf.Timeout); err != nil {
		return false, fmt.Errorf("timeout %q: %w", cf.Timeout, err)
	}
	data, err := yaml.Marshal(&cf)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# staffdir configuration; STAFFDIR_* environment variables override these keys.\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}
