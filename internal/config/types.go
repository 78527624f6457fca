package config

// Config represents the complete accrete configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Build   BuildConfig   `yaml:"build"`
	Journal JournalConfig `yaml:"journal"`
	API     APIConfig     `yaml:"api,omitempty"`
	RulesDir string       `yaml:"rules_dir"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// BuildConfig defines the build tree and concurrency settings.
type BuildConfig struct {
	SrcDir     string `yaml:"src_dir"`
	TmpDir     string `yaml:"tmp_dir"`
	MaxActions int    `yaml:"max_actions"`
}

// JournalConfig defines run journal storage settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// APIConfig defines HTTP status API settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "accrete",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Build: BuildConfig{
			SrcDir:     "./src",
			TmpDir:     "./tmp",
			MaxActions: 4,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "./data/journal.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8080",
		},
		RulesDir: "./rules",
	}
}
