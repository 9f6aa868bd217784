package config

import (
	"fmt"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"

	"github.com/docker/go-connections/nat"
)

// serviceEndpoints returns the configured endpoints, or derives one URL per
// published host port when none are listed.
func serviceEndpoints(service ServiceConfig) ([]domain.Endpoint, error) {
	if len(service.Endpoints) > 0 {
		endpoints := make([]domain.Endpoint, 0, len(service.Endpoints))
		for _, endpoint := range service.Endpoints {
			endpoints = append(endpoints, domain.Endpoint{Name: endpoint.Name, URL: endpoint.URL})
		}
		return endpoints, nil
	}

	var endpoints []domain.Endpoint
	for _, spec := range service.Ports {
		mappings, err := nat.ParsePortSpec(spec)
		if err != nil {
			return nil, errors.NewValidationError("invalid port mapping", err).
				WithContext("service", service.Name).WithContext("port", spec)
		}
		for _, mapping := range mappings {
			if mapping.Binding.HostPort == "" || mapping.Port.Proto() != "tcp" {
				continue
			}
			host := mapping.Binding.HostIP
			if host == "" || host == "0.0.0.0" {
				host = "localhost"
			}
			endpoints = append(endpoints, domain.Endpoint{
				Name: service.Name,
				URL:  fmt.Sprintf("http://%s:%s", host, mapping.Binding.HostPort),
			})
		}
	}
	return endpoints, nil
}
