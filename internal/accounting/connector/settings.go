package connector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSettings reads the provider configuration from a YAML file.
// Values may reference environment variables with ${VAR} so secrets stay
// out of the file.
func LoadSettings(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read accounting config %s: %w", path, err)
	}
	raw = []byte(os.ExpandEnv(string(raw)))

	var wrapper struct {
		Accounting Settings `yaml:"accounting"`
	}
	if err := yaml.Unmarshal(raw, &wrapper); err != nil {
		return Settings{}, fmt.Errorf("failed to parse accounting config: %w", err)
	}
	if wrapper.Accounting.Provider == "" {
		return Settings{}, fmt.Errorf("accounting config missing provider")
	}
	return wrapper.Accounting, nil
}
