package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/monitoring"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is picked up from the working directory when no --config is given
const DefaultConfigFile = "stack.yaml"

// StackConfig represents the top-level stack definition
type StackConfig struct {
	Project     string            `yaml:"project" validate:"required"`
	Platform    PlatformConfig    `yaml:"platform"`
	Environment EnvironmentConfig `yaml:"environment"`
	Health      HealthConfig      `yaml:"health"`
	Services    []ServiceConfig   `yaml:"services" validate:"required,min=1,dive"`
}

// PlatformConfig selects the compose tool and its project files
type PlatformConfig struct {
	Command      []string `yaml:"command" validate:"required,min=1,dive,required"`
	ComposeFiles []string `yaml:"compose_files,omitempty" validate:"dive,required"`
	ProjectDir   string   `yaml:"project_dir,omitempty"`
}

// ValueKind is the type a typed environment setting must parse as
type ValueKind string

const (
	ValueKindBool ValueKind = "bool"
	ValueKindInt  ValueKind = "int"
	ValueKindPath ValueKind = "path"
)

// EnvironmentConfig lists what the environment validator enforces
type EnvironmentConfig struct {
	File          string               `yaml:"file" validate:"required"`
	Template      string               `yaml:"template,omitempty"`
	RequiredKeys  []string             `yaml:"required_keys" validate:"dive,required"`
	Placeholders  []string             `yaml:"placeholders,omitempty"`
	Typed         map[string]ValueKind `yaml:"typed,omitempty" validate:"dive,oneof=bool int path"`
	UseProcessEnv bool                 `yaml:"use_process_env,omitempty"`
}

// HealthConfig is the readiness polling policy shared by all services
type HealthConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	Interval     time.Duration `yaml:"interval"`
	ProbeTimeout time.Duration `yaml:"probe_timeout,omitempty"`
}

// ServiceConfig represents a single service of the stack
type ServiceConfig struct {
	Name      string                       `yaml:"name" validate:"required"`
	Readiness monitoring.HealthCheckConfig `yaml:"readiness"`
	Ports     []string                     `yaml:"ports,omitempty"`
	Endpoints []EndpointConfig             `yaml:"endpoints,omitempty" validate:"dive"`
}

type EndpointConfig struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
}

// LoadConfigFromFile loads stack configuration from a YAML file
func LoadConfigFromFile(filename string) (*StackConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	config, parseErr := parseConfig(data)
	if parseErr != nil {
		return nil, parseErr.WithContext("filename", filename)
	}
	return config, nil
}

// LoadDefaultConfig returns the built-in backend/frontend stack
func LoadDefaultConfig() (*StackConfig, error) {
	config, parseErr := parseConfig(defaultStackYAML)
	if parseErr != nil {
		return nil, parseErr
	}
	return config, nil
}

// Load reads filename, or stack.yaml from the working directory, or falls back to the built-in stack
func Load(filename string) (*StackConfig, string, error) {
	if filename == "" {
		if _, err := os.Stat(DefaultConfigFile); err != nil {
			config, err := LoadDefaultConfig()
			return config, "<built-in>", err
		}
		filename = DefaultConfigFile
	}

	config, err := LoadConfigFromFile(filename)
	return config, filename, err
}

func parseConfig(data []byte) (*StackConfig, *errors.DomainError) {
	var config StackConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// setConfigDefaults applies default values to configuration
func setConfigDefaults(config *StackConfig) {
	if len(config.Platform.Command) == 0 {
		config.Platform.Command = []string{"docker", "compose"}
	}

	if config.Environment.File == "" {
		config.Environment.File = ".env"
	}

	if config.Health.MaxAttempts == 0 {
		config.Health.MaxAttempts = monitoring.DefaultMaxAttempts
	}
	if config.Health.Interval == 0 {
		config.Health.Interval = monitoring.DefaultInterval
	}
	if config.Health.ProbeTimeout == 0 {
		config.Health.ProbeTimeout = monitoring.DefaultProbeTimeout
	}

	for i := range config.Services {
		if config.Services[i].Readiness.Timeout == 0 {
			config.Services[i].Readiness.Timeout = config.Health.ProbeTimeout
		}
	}
}

// Policy returns the health polling policy
func (c *StackConfig) Policy() monitoring.Policy {
	return monitoring.Policy{
		MaxAttempts: c.Health.MaxAttempts,
		Interval:    c.Health.Interval,
	}
}

// ResolvePath interprets relative paths against the project directory
func (c *StackConfig) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Platform.ProjectDir == "" {
		return path
	}
	return filepath.Join(c.Platform.ProjectDir, path)
}

// ServiceNames returns service names in configuration order
func (c *StackConfig) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for _, service := range c.Services {
		names = append(names, service.Name)
	}
	return names
}

// ResolveScope maps the optional service argument to a scope
func (c *StackConfig) ResolveScope(arg string) (domain.ServiceSet, error) {
	names := c.ServiceNames()
	if arg == "" || arg == "all" {
		return domain.AllServices(names), nil
	}
	for _, name := range names {
		if name == arg {
			return domain.SingleService(name), nil
		}
	}
	return domain.ServiceSet{}, errors.NewUnknownServiceError(arg, names)
}

// DomainServices builds the domain services with resolved endpoints
func (c *StackConfig) DomainServices() ([]domain.Service, error) {
	services := make([]domain.Service, 0, len(c.Services))
	for _, serviceConfig := range c.Services {
		endpoints, err := serviceEndpoints(serviceConfig)
		if err != nil {
			return nil, err
		}
		services = append(services, domain.Service{Name: serviceConfig.Name, Endpoints: endpoints})
	}
	return services, nil
}

// BuildProbes creates one readiness probe per service
func (c *StackConfig) BuildProbes() (map[string]monitoring.Probe, error) {
	probes := make(map[string]monitoring.Probe, len(c.Services))
	for _, service := range c.Services {
		probe, err := monitoring.NewProbe(service.Readiness)
		if err != nil {
			return nil, errors.NewValidationError("invalid readiness check", err).WithContext("service", service.Name)
		}
		probes[service.Name] = probe
	}
	return probes, nil
}
