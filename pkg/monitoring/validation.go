package monitoring

import "github.com/core-tools/hsu-stack/pkg/errors"

// ValidatePolicy validates the bounded-retry polling policy
func ValidatePolicy(policy Policy) error {
	if policy.MaxAttempts < 1 {
		return errors.NewValidationError("max attempts must be at least 1", nil)
	}

	if policy.Interval < 0 {
		return errors.NewValidationError("poll interval cannot be negative", nil)
	}

	return nil
}

// ValidateHealthCheckConfig validates health check configuration
func ValidateHealthCheckConfig(config HealthCheckConfig) error {
	if config.Timeout < 0 {
		return errors.NewValidationError("health check timeout cannot be negative", nil)
	}

	switch config.Type {
	case HealthCheckTypeHTTP:
		if config.HTTP.URL == "" {
			return errors.NewValidationError("HTTP URL is required for HTTP health check", nil)
		}
		minStatus, maxStatus := config.HTTP.ExpectStatusMin, config.HTTP.ExpectStatusMax
		if minStatus < 0 || maxStatus < 0 || (maxStatus != 0 && minStatus > maxStatus) {
			return errors.NewValidationError("HTTP expected status range is invalid", nil)
		}

	case HealthCheckTypeGRPC:
		if config.GRPC.Address == "" {
			return errors.NewValidationError("gRPC address is required for gRPC health check", nil)
		}

	case HealthCheckTypeTCP:
		if config.TCP.Address == "" {
			return errors.NewValidationError("TCP address is required for TCP health check", nil)
		}
		if config.TCP.Port <= 0 || config.TCP.Port > 65535 {
			return errors.NewValidationError("TCP port must be between 1 and 65535", nil)
		}

	case HealthCheckTypeExec:
		if config.Exec.Command == "" {
			return errors.NewValidationError("command is required for exec health check", nil)
		}

	default:
		return errors.NewValidationError("unsupported health check type: "+string(config.Type), nil)
	}

	return nil
}
