package types

import (
	"errors"
	"net/url"
	"time"
)

// Config holds backend selection and the parameters every component is
// constructed with. It is treated as immutable once loaded.
type Config struct {
	Backend           string        `json:"backend" yaml:"backend"`
	Endpoint          string        `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	List              string        `json:"list" yaml:"list"`
	DataDir           string        `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	PageSize          int           `json:"page_size" yaml:"page_size"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	EnrichConcurrency int           `json:"enrich_concurrency" yaml:"enrich_concurrency"`
	LogMode           string        `json:"log_mode" yaml:"log_mode"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

// Defaults applied by WithDefaults.
const (
	DefaultList              = "employees"
	DefaultPageSize          = 100
	DefaultTimeout           = 15 * time.Second
	DefaultEnrichConcurrency = 16
	DefaultLogMode           = "dev"
)

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrEndpointEmpty    = errors.New("endpoint must be set for the http backend")
	ErrEndpointInvalid  = errors.New("endpoint must be an absolute http(s) URL")
	ErrPageSizeInvalid  = errors.New("page size must not be negative")
	ErrListEmpty        = errors.New("list name must not be empty")
	ErrConcurrencyLimit = errors.New("enrich concurrency must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendHTTP:   true,
}

// WithDefaults returns a copy of c with zero-valued tunables replaced by
// their defaults.
func (c Config) WithDefaults() Config {
	if c.List == "" {
		c.List = DefaultList
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.EnrichConcurrency == 0 {
		c.EnrichConcurrency = DefaultEnrichConcurrency
	}
	if c.LogMode == "" {
		c.LogMode = DefaultLogMode
	}
	return c
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendHTTP {
		if c.Endpoint == "" {
			return ErrEndpointEmpty
		}
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrEndpointInvalid
		}
	}
	if c.List == "" {
		return ErrListEmpty
	}
	if c.PageSize < 0 {
		return ErrPageSizeInvalid
	}
	if c.EnrichConcurrency < 0 {
		return ErrConcurrencyLimit
	}
	return nil
}
