package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/monitoring"

	"github.com/docker/go-connections/nat"
	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	// Report YAML field names so messages match what the operator wrote
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *StackConfig) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	collection := errors.NewErrorCollection()

	if err := structValidator.Struct(config); err != nil {
		var fieldErrors validator.ValidationErrors
		if !stderrors.As(err, &fieldErrors) {
			return errors.NewValidationError("failed to validate configuration", err)
		}
		for _, fieldError := range fieldErrors {
			collection.Add(errors.NewValidationError(
				fmt.Sprintf("field %s failed rule %q", fieldError.Namespace(), fieldError.Tag()), nil))
		}
	}

	if err := monitoring.ValidatePolicy(config.Policy()); err != nil {
		collection.Add(err)
	}

	seen := make(map[string]bool, len(config.Services))
	for _, service := range config.Services {
		if service.Name == "all" {
			collection.Add(errors.NewValidationError("service name \"all\" is reserved", nil))
		}
		if seen[service.Name] {
			collection.Add(errors.NewValidationError("duplicate service name", nil).WithContext("service", service.Name))
		}
		seen[service.Name] = true

		if err := monitoring.ValidateHealthCheckConfig(service.Readiness); err != nil {
			collection.Add(errors.NewValidationError(
				fmt.Sprintf("invalid readiness check for service %s", service.Name), err))
		}

		for _, port := range service.Ports {
			if _, err := nat.ParsePortSpec(port); err != nil {
				collection.Add(errors.NewValidationError(
					fmt.Sprintf("invalid port mapping %q for service %s", port, service.Name), err))
			}
		}
	}

	if err := collection.ToError(); err != nil {
		return errors.NewValidationError("invalid stack configuration", err)
	}
	return nil
}
