// Package config provides configuration management for the pgcatalog CLI.
//
// Settings are layered with koanf: built-in defaults, then pgcatalog.yaml,
// then PGCATALOG_* environment variables, then command-line flags that were
// explicitly set.
package config

// Config holds all CLI configuration options.
type Config struct {
	// Conn holds the connection strings given by the user. The postgres
	// adapter accepts at most one.
	Conn []string `koanf:"conn"`
	// Options are the adapter's named connection options, keyed by option
	// name (host, port, sslmode, ...).
	Options map[string]string `koanf:"options"`
	Output  string            `koanf:"output"`
	Limit   int               `koanf:"limit"`
	Verbose bool              `koanf:"verbose"`
	NoColor bool              `koanf:"no_color"`
	// Yes answers every confirmation prompt with yes.
	Yes bool `koanf:"yes"`
}

// Output formats.
const (
	OutputTable    = "table"
	OutputJSON     = "json"
	OutputCSV      = "csv"
	OutputMarkdown = "md"
	OutputYAML     = "yaml"
)

// OutputFormats lists every accepted value of the output setting.
var OutputFormats = []string{OutputTable, OutputJSON, OutputCSV, OutputMarkdown, OutputYAML}

// Default configuration values.
const (
	DefaultOutput = OutputTable
	DefaultLimit  = 1000
	EnvPrefix     = "PGCATALOG_"
)
