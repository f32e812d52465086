// Package config provides file-based configuration loading (YAML/JSON) for
// runtime settings and for declaratively-authored definition-model
// fixtures (pkg/config/definition.go), grounded on the teacher's
// pkg/config loader/validator shape.
package config

import "strings"

// Load loads configuration from path, detecting YAML vs JSON by extension.
func Load(path string, target interface{}) error {
	if strings.HasSuffix(path, ".json") {
		return LoadJSON(path, target)
	}
	return LoadYAML(path, target)
}

// Validator validates a loaded configuration value.
type Validator interface {
	Validate(cfg interface{}) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(cfg interface{}) error

func (f ValidatorFunc) Validate(cfg interface{}) error { return f(cfg) }

// LoadAndValidate loads path into target and runs every validator against it.
func LoadAndValidate(path string, target interface{}, validators ...Validator) error {
	if err := Load(path, target); err != nil {
		return err
	}
	for _, v := range validators {
		if err := v.Validate(target); err != nil {
			return err
		}
	}
	return nil
}
