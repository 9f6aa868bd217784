package config

import _ "embed"

//go:embed default_stack.yaml
var defaultStackYAML []byte

// DefaultEnvTemplate seeds the environment file when neither the file nor a template exists
//
//go:embed default.env
var DefaultEnvTemplate []byte
