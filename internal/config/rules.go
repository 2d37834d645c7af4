package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stoik/phish-verdict/internal/domain/detection"
	"github.com/stoik/phish-verdict/internal/domain/email"
)

// Rules bundles the URL and email scoring tables
type Rules struct {
	URL   detection.Rules `yaml:"url"`
	Email email.Rules     `yaml:"email"`
}

// DefaultRules returns the built-in tables
func DefaultRules() Rules {
	return Rules{URL: detection.DefaultRules(), Email: email.DefaultRules()}
}

// LoadRules overlays a YAML rules file on the built-in tables
//
// Fields missing from the file keep their defaults. Lists in the file
// replace the default list; maps are merged key by key. An empty path
// returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if err := rules.Email.Validate(); err != nil {
		return Rules{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}
