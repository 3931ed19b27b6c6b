package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadErrorFormats reads per-environment error templates from a YAML, TOML
// or JSON file:
//
//	formats:
//	  production:
//	    message: "An error occurred: :message"
//	  local:
//	    message: "Development error: :message"
//	    trace: "Stack: :trace"
//
// Keys are lower-cased, as viper does for every key.
func LoadErrorFormats(path string) (map[string]map[string]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read error formats %s: %w", path, err)
	}

	envs := v.GetStringMap("formats")
	if len(envs) == 0 {
		return nil, fmt.Errorf("error formats %s: no formats defined", path)
	}
	out := make(map[string]map[string]string, len(envs))
	for env := range envs {
		out[env] = v.GetStringMapString("formats." + env)
	}
	return out, nil
}
