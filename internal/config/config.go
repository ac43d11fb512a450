package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	RedCap RedCapConfig `yaml:"redcap"`
	Paths  PathsConfig  `yaml:"paths"`
	Log    LogConfig    `yaml:"log"`
}

// RedCapConfig holds the API connection settings for one REDCap project.
// URL and token are optional at load time: a fill-only run never touches the
// API. HasAPI gates the stages that do.
type RedCapConfig struct {
	APIURL   string        `yaml:"api_url"   env:"REDCAP_API_URL"`
	APIToken string        `yaml:"api_token" env:"REDCAP_API_TOKEN"`
	Insecure bool          `yaml:"insecure"  env:"REDCAP_INSECURE" env-default:"false"`
	Timeout  time.Duration `yaml:"timeout"   env:"REDCAP_TIMEOUT"  env-default:"30s"`
}

// PathsConfig holds the file locations the pipeline reads and writes.
type PathsConfig struct {
	LanguagesFile string `yaml:"languages_file" env:"PATHS_LANGUAGES_FILE" env-default:"./languages.csv"`
	OutputDir     string `yaml:"output_dir"     env:"PATHS_OUTPUT_DIR"     env-default:"./output"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// HasAPI reports whether the REDCap connection settings are present.
func (c RedCapConfig) HasAPI() bool {
	return c.APIURL != "" && c.APIToken != ""
}
