package environment

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-stack/pkg/config"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"

	"github.com/joho/godotenv"
)

// Options describes where settings come from and what they must satisfy
type Options struct {
	Path            string
	TemplatePath    string
	DefaultTemplate []byte
	RequiredKeys    []string
	Placeholders    []string
	Typed           map[string]config.ValueKind
	UseProcessEnv   bool
}

// OptionsFromConfig derives validator options from the stack configuration.
// A non-empty envFile overrides the configured file.
func OptionsFromConfig(stackConfig *config.StackConfig, envFile string) Options {
	path := envFile
	if path == "" {
		path = stackConfig.ResolvePath(stackConfig.Environment.File)
	}
	return Options{
		Path:            path,
		TemplatePath:    stackConfig.ResolvePath(stackConfig.Environment.Template),
		DefaultTemplate: config.DefaultEnvTemplate,
		RequiredKeys:    stackConfig.Environment.RequiredKeys,
		Placeholders:    stackConfig.Environment.Placeholders,
		Typed:           stackConfig.Environment.Typed,
		UseProcessEnv:   stackConfig.Environment.UseProcessEnv,
	}
}

// Validator checks the runtime configuration before anything is built or started
type Validator struct {
	options      Options
	logger       logging.Logger
	lookupEnv    func(key string) (string, bool)
	materialized bool
}

func NewValidator(options Options, logger logging.Logger) *Validator {
	return &Validator{
		options:   options,
		logger:    logger,
		lookupEnv: os.LookupEnv,
	}
}

// Validate succeeds iff a configuration source exists, every required key is
// set to a non-placeholder value and every typed setting that is present parses.
// When the file is missing but a template is available, the file is created from
// the template and MissingConfigFile is returned so the operator can edit it.
func (v *Validator) Validate() error {
	values, err := v.load()
	if err != nil {
		return err
	}

	for _, key := range v.options.RequiredKeys {
		value, ok := values[key]
		if !ok || strings.TrimSpace(value) == "" {
			return errors.NewMissingKeyError(key).WithContext("path", v.options.Path)
		}
		if v.isPlaceholder(value) {
			return errors.NewPlaceholderValueError(key).WithContext("path", v.options.Path)
		}
	}

	for _, key := range sortedKeys(v.options.Typed) {
		value, ok := values[key]
		if !ok || value == "" {
			continue
		}
		if err := checkValue(v.options.Typed[key], value); err != nil {
			return errors.NewInvalidValueError(key, err).WithContext("path", v.options.Path)
		}
	}

	v.logger.Infof("Environment configuration is valid, path: %s, required_keys: %d",
		v.options.Path, len(v.options.RequiredKeys))
	return nil
}

func (v *Validator) load() (map[string]string, error) {
	values, err := godotenv.Read(v.options.Path)
	if err == nil {
		v.mergeProcessEnv(values)
		return values, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.NewIOError("failed to read environment file", err).WithContext("path", v.options.Path)
	}

	// Exported settings are a complete source on their own, no file needed
	if v.options.UseProcessEnv && v.processEnvComplete() {
		v.logger.Debugf("Environment file not found, using process environment, path: %s", v.options.Path)
		values = make(map[string]string)
		v.mergeProcessEnv(values)
		return values, nil
	}

	template, source := v.template()
	if template != nil && !v.materialized {
		if err := v.materialize(template); err != nil {
			return nil, err
		}
		v.logger.Warnf("Created environment file from template, path: %s, template: %s", v.options.Path, source)
		return nil, errors.NewMissingConfigFileError(v.options.Path, nil).
			WithContext("created_from", source).
			WithContext("hint", "edit the file and set the required keys")
	}

	if v.options.UseProcessEnv {
		v.logger.Debugf("Environment file not found, using process environment, path: %s", v.options.Path)
		values = make(map[string]string)
		v.mergeProcessEnv(values)
		return values, nil
	}

	return nil, errors.NewMissingConfigFileError(v.options.Path, err)
}

// processEnvComplete reports whether every required key is exported with a usable value
func (v *Validator) processEnvComplete() bool {
	for _, key := range v.options.RequiredKeys {
		value, ok := v.lookupEnv(key)
		if !ok || !v.usable(value) {
			return false
		}
	}
	return true
}

// mergeProcessEnv fills keys the file leaves blank. An exported usable value
// also replaces a placeholder left in the file.
func (v *Validator) mergeProcessEnv(values map[string]string) {
	if !v.options.UseProcessEnv {
		return
	}
	keys := append([]string{}, v.options.RequiredKeys...)
	keys = append(keys, sortedKeys(v.options.Typed)...)
	for _, key := range keys {
		value, ok := v.lookupEnv(key)
		if !ok {
			continue
		}
		current, present := values[key]
		switch {
		case !present || strings.TrimSpace(current) == "":
			values[key] = value
		case v.isPlaceholder(current) && v.usable(value):
			v.logger.Debugf("Placeholder in environment file overridden by process environment, key: %s", key)
			values[key] = value
		}
	}
}

func (v *Validator) usable(value string) bool {
	return strings.TrimSpace(value) != "" && !v.isPlaceholder(value)
}

// template prefers a template file next to the project over the embedded default
func (v *Validator) template() ([]byte, string) {
	if v.options.TemplatePath != "" {
		data, err := os.ReadFile(v.options.TemplatePath)
		if err == nil {
			return data, v.options.TemplatePath
		}
		v.logger.Debugf("Template file not readable, path: %s, error: %v", v.options.TemplatePath, err)
	}
	if len(v.options.DefaultTemplate) > 0 {
		return v.options.DefaultTemplate, "<built-in>"
	}
	return nil, ""
}

func (v *Validator) materialize(template []byte) error {
	v.materialized = true

	if _, err := godotenv.Unmarshal(string(template)); err != nil {
		return errors.NewValidationError("environment template is malformed", err)
	}
	if dir := filepath.Dir(v.options.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIOError("failed to create environment directory", err).WithContext("path", dir)
		}
	}
	// Owner-only: the file is meant to hold credentials
	if err := os.WriteFile(v.options.Path, template, 0600); err != nil {
		return errors.NewIOError("failed to create environment file", err).WithContext("path", v.options.Path)
	}
	return nil
}

func (v *Validator) isPlaceholder(value string) bool {
	trimmed := strings.TrimSpace(value)
	for _, placeholder := range v.options.Placeholders {
		if trimmed == strings.TrimSpace(placeholder) {
			return true
		}
	}
	return false
}

func checkValue(kind config.ValueKind, value string) error {
	switch kind {
	case config.ValueKindBool:
		_, err := strconv.ParseBool(strings.TrimSpace(value))
		return err
	case config.ValueKindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.NewValidationError("value must be positive", nil)
		}
		return nil
	case config.ValueKindPath:
		if strings.TrimSpace(value) == "" {
			return errors.NewValidationError("path cannot be empty", nil)
		}
		if strings.ContainsRune(value, 0) {
			return errors.NewValidationError("path contains a NUL byte", nil)
		}
		return nil
	default:
		return errors.NewValidationError("unsupported value kind", nil).WithContext("kind", kind)
	}
}

func sortedKeys(typed map[string]config.ValueKind) []string {
	keys := make([]string, 0, len(typed))
	for key := range typed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
