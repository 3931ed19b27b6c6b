package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ParameterSetter is the part of the container that receives parameters.
type ParameterSetter interface {
	SetParameter(key string, v any)
}

// LoadParameters reads a YAML, TOML or JSON file (by extension) into a flat
// map keyed by dotted path. Env vars prefixed with IOC_ override file values:
// IOC_MAIL_HOST overrides mail.host.
func LoadParameters(path string) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("IOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read parameters %s: %w", path, err)
	}

	params := make(map[string]any, len(v.AllKeys()))
	for _, key := range v.AllKeys() {
		params[key] = v.Get(key)
	}
	return params, nil
}

// ApplyParameters loads path and stores every parameter on dst. It returns
// the number of parameters applied.
func ApplyParameters(path string, dst ParameterSetter) (int, error) {
	params, err := LoadParameters(path)
	if err != nil {
		return 0, err
	}
	for key, value := range params {
		dst.SetParameter(key, value)
	}
	return len(params), nil
}
