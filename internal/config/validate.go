package config

import (
	"fmt"
	"net/url"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Paths.LanguagesFile == "" {
		return fmt.Errorf("paths.languages_file must not be empty")
	}
	if c.Paths.OutputDir == "" {
		return fmt.Errorf("paths.output_dir must not be empty")
	}
	if c.RedCap.Timeout <= 0 {
		return fmt.Errorf("redcap.timeout must be > 0 (got %v)", c.RedCap.Timeout)
	}
	if c.RedCap.APIURL != "" {
		u, err := url.Parse(c.RedCap.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("redcap.api_url must be an http(s) URL (got %q)", c.RedCap.APIURL)
		}
	}
	return nil
}
