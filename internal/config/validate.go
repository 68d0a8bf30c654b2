// Package config provides configuration models and helpers for dmart runs.
//
// This file adds a lightweight linter/validator for Config values. It
// performs static checks over a decoded Config and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Config.
//
// Path is a dotted path into the config (e.g. "engine.kind",
// "files.sales"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Known values for enum-like keys.
var (
	EngineKinds     = []string{"memory", "sqlite", "postgres", "mssql"}
	OutputFormats   = []string{"text", "json"}
	MetricsBackends = []string{"none", "pushgateway", "datadog"}
	LogLevels       = []string{"CRITICAL", "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG"}
)

// ValidateConfig performs static validation of a Config. It does not touch
// the filesystem or the network; a missing input file is reported by the
// loader at run time.
func ValidateConfig(c Config) []Issue {
	var issues []Issue

	if c.DataPath == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "data_path",
			Message:  "data_path must not be empty; set it in the config, with --data-path or DOWNLOAD_PATH",
		})
	}
	issues = append(issues, validateFiles(c.Files)...)
	issues = append(issues, validateHTTP(c.DataPath, c.HTTP)...)
	issues = append(issues, validateCSV(c.CSV)...)
	issues = append(issues, validateEngine(c.Engine)...)
	issues = append(issues, validateRuntime(c.Runtime)...)

	if !oneOf(c.Output.Format, OutputFormats) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.format",
			Message:  fmt.Sprintf("unknown output format %q; want one of %s", c.Output.Format, strings.Join(OutputFormats, ", ")),
		})
	}
	if !oneOf(c.Log.Level, LogLevels) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.level",
			Message:  fmt.Sprintf("unknown log level %q; want one of %s", c.Log.Level, strings.Join(LogLevels, ", ")),
		})
	}
	issues = append(issues, validateMetrics(c.Metrics)...)

	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateFiles(f Files) []Issue {
	var issues []Issue
	named := []struct{ path, name string }{
		{"files.product", f.Product},
		{"files.sales", f.Sales},
		{"files.customer", f.Customer},
	}
	seen := map[string]string{}
	for _, n := range named {
		if strings.TrimSpace(n.name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     n.path,
				Message:  "file name must not be empty",
			})
			continue
		}
		clean := filepath.Clean(n.name)
		if prev, dup := seen[clean]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     n.path,
				Message:  fmt.Sprintf("same file as %s; two entities will be read from %q", prev, n.name),
			})
		}
		seen[clean] = n.path
	}
	return issues
}

func validateHTTP(dataPath string, h HTTP) []Issue {
	var issues []Issue
	if h.Timeout <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "http.timeout",
			Message:  "timeout must be > 0",
		})
	}
	if h.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "http.max_retries",
			Message:  "max_retries must be >= 0",
		})
	}
	lower := strings.ToLower(dataPath)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if u, err := url.Parse(dataPath); err != nil || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "data_path",
				Message:  fmt.Sprintf("data_path %q is not a valid URL", dataPath),
			})
		}
	}
	return issues
}

func validateCSV(c CSV) []Issue {
	var issues []Issue
	d := c.Delimiter
	if d == `\t` {
		d = "\t"
	}
	if utf8.RuneCountInString(d) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "csv.delimiter",
			Message:  fmt.Sprintf("delimiter must be a single character, got %q", c.Delimiter),
		})
		return issues
	}
	r, _ := utf8.DecodeRuneInString(d)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "csv.delimiter",
			Message:  fmt.Sprintf("delimiter %q cannot be used", c.Delimiter),
		})
	}
	return issues
}

func validateEngine(e Engine) []Issue {
	var issues []Issue
	if !oneOf(e.Kind, EngineKinds) {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "engine.kind",
			Message:  fmt.Sprintf("unknown engine kind %q; want one of %s", e.Kind, strings.Join(EngineKinds, ", ")),
		})
	}
	switch e.Kind {
	case "postgres", "mssql":
		if strings.TrimSpace(e.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "engine.dsn",
				Message:  fmt.Sprintf("%s engine requires a DSN", e.Kind),
			})
		}
	case "memory":
		if strings.TrimSpace(e.DSN) != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "engine.dsn",
				Message:  "memory engine ignores engine.dsn",
			})
		}
	}
	if e.Kind != "memory" && !isIdentifier(e.Table) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "engine.table",
			Message:  fmt.Sprintf("scratch table prefix %q must match [A-Za-z_][A-Za-z0-9_]*", e.Table),
		})
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	if r.QueryWorkers < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.query_workers",
			Message:  "query_workers must be >= 1",
		})
	}
	if r.BatchSize < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must be >= 1",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	if !oneOf(m.Backend, MetricsBackends) {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; want one of %s", m.Backend, strings.Join(MetricsBackends, ", ")),
		})
	}
	switch m.Backend {
	case "pushgateway":
		u, err := url.Parse(m.PushgatewayURL)
		if m.PushgatewayURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires an absolute URL such as http://localhost:9091",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires a statsd address",
			})
		}
	}
	if m.Backend != "none" && strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	return issues
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
