// Package config defines the configuration model for a dmart run and loads it
// with viper from (in increasing precedence) built-in defaults, an optional
// JSON/YAML/TOML file, environment variables and command-line flags bound by
// the caller.
//
// The resolved Config is an explicit value handed to each stage; nothing here
// is process-wide state.
//
// Example (YAML):
//
//	data_path: /srv/dmart
//	files: { sales: Sales_2017.csv }
//	engine: { kind: sqlite }
//	runtime: { query_workers: 4 }
//	metrics: { backend: pushgateway, pushgateway_url: http://pgw:9091 }
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for one run.
type Config struct {
	// DataPath is the directory (or http(s) base URL) holding the three input
	// files. DMART_DATA_PATH and the older DOWNLOAD_PATH override it; the
	// default is "data".
	DataPath string `mapstructure:"data_path"`

	Files    Files    `mapstructure:"files"`
	HTTP     HTTP     `mapstructure:"http"`
	CSV      CSV      `mapstructure:"csv"`
	Clean    Clean    `mapstructure:"clean"`
	Engine   Engine   `mapstructure:"engine"`
	Analysis Analysis `mapstructure:"analysis"`
	Runtime  Runtime  `mapstructure:"runtime"`
	Output   Output   `mapstructure:"output"`
	Log      Log      `mapstructure:"log"`
	Metrics  Metrics  `mapstructure:"metrics"`
}

// Files names the input file of each entity, relative to DataPath.
type Files struct {
	Product  string `mapstructure:"product"`
	Sales    string `mapstructure:"sales"`
	Customer string `mapstructure:"customer"`
}

// HTTP configures fetching when DataPath is an http(s) URL.
type HTTP struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// CSV configures the delimited-text reader shared by all inputs.
type CSV struct {
	Delimiter  string `mapstructure:"delimiter"`
	TrimSpace  bool   `mapstructure:"trim_space"`
	LazyQuotes bool   `mapstructure:"lazy_quotes"`
	// StringColumns are never type-inferred (identifiers, postal codes).
	StringColumns []string `mapstructure:"string_columns"`
}

// Comma returns the delimiter as a rune, defaulting to ','.
func (c CSV) Comma() rune {
	if c.Delimiter == "" {
		return ','
	}
	if c.Delimiter == `\t` {
		return '\t'
	}
	return []rune(c.Delimiter)[0]
}

// Clean controls missing-value handling.
type Clean struct {
	// StrictFill turns a fill value that does not fit an explicitly named
	// column into a TypeCoercionError instead of a no-op.
	StrictFill bool `mapstructure:"strict_fill"`
}

// Engine selects the compute engine that runs the aggregation queries.
type Engine struct {
	Kind string `mapstructure:"kind"`
	// DSN is the connection string for SQL engines. Empty means an in-memory
	// database for sqlite.
	DSN string `mapstructure:"dsn"`
	// Table is the scratch table prefix; a unique suffix is appended per run.
	Table string `mapstructure:"table"`
}

// Analysis tunes query semantics.
type Analysis struct {
	// DistinctProducts makes products_by_region count distinct product ids
	// instead of rows.
	DistinctProducts bool `mapstructure:"distinct_products"`
}

// Runtime controls concurrency.
type Runtime struct {
	QueryWorkers int `mapstructure:"query_workers"`
	// BatchSize is the number of rows per bulk copy into a SQL engine.
	BatchSize int `mapstructure:"batch_size"`
}

// Output selects the report renderer.
type Output struct {
	Format string `mapstructure:"format"`
}

// Log configures the go-logging backend.
type Log struct {
	Level string `mapstructure:"level"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	Backend        string `mapstructure:"backend"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	DatadogAddr    string `mapstructure:"datadog_addr"`
	Job            string `mapstructure:"job"`
}

// Default input location and file names.
const (
	DefaultDataPath     = "data"
	DefaultProductFile  = "Product.csv"
	DefaultSalesFile    = "Sales.csv"
	DefaultCustomerFile = "Customer.csv"
)

// DefaultStringColumns are identifiers and codes that keep their text form.
var DefaultStringColumns = []string{"Product ID", "Customer ID", "Order ID", "Postal Code"}

// envPrefix is prepended to every config key when looking up environment
// variables: engine.kind -> DMART_ENGINE_KIND.
const envPrefix = "DMART"

// New returns a viper instance with defaults and environment bindings
// installed. Callers may bind flags before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("data_path", DefaultDataPath)
	v.SetDefault("files.product", DefaultProductFile)
	v.SetDefault("files.sales", DefaultSalesFile)
	v.SetDefault("files.customer", DefaultCustomerFile)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("csv.delimiter", ",")
	v.SetDefault("csv.trim_space", true)
	v.SetDefault("csv.lazy_quotes", false)
	v.SetDefault("csv.string_columns", DefaultStringColumns)
	v.SetDefault("clean.strict_fill", false)
	v.SetDefault("engine.kind", "memory")
	v.SetDefault("engine.dsn", "")
	v.SetDefault("engine.table", "dmart_full_data")
	v.SetDefault("analysis.distinct_products", false)
	v.SetDefault("runtime.query_workers", 4)
	v.SetDefault("runtime.batch_size", 5000)
	v.SetDefault("output.format", "text")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "127.0.0.1:8125")
	v.SetDefault("metrics.job", "dmart")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// The historical variable name for the input directory.
	_ = v.BindEnv("data_path", envPrefix+"_DATA_PATH", "DOWNLOAD_PATH")

	return v
}

// Load reads the optional config file into v and decodes the result. An empty
// path skips the file; a named file that cannot be read is an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if errors.As(err, &nf) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("could not read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize canonicalizes enum-like fields so validation and dispatch can
// compare them directly.
func (c *Config) normalize() {
	c.DataPath = strings.TrimSpace(c.DataPath)
	c.Engine.Kind = strings.ToLower(strings.TrimSpace(c.Engine.Kind))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Metrics.Backend = strings.ToLower(strings.TrimSpace(c.Metrics.Backend))
	c.Log.Level = strings.ToUpper(strings.TrimSpace(c.Log.Level))
}
