package monitoring

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type HealthCheckType string

const (
	HealthCheckTypeHTTP HealthCheckType = "http"
	HealthCheckTypeGRPC HealthCheckType = "grpc"
	HealthCheckTypeTCP  HealthCheckType = "tcp"
	HealthCheckTypeExec HealthCheckType = "exec"
)

const DefaultProbeTimeout = 5 * time.Second

type HTTPHealthCheckConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`

	// Success predicate: status within [ExpectStatusMin, ExpectStatusMax] (default 2xx)
	// and, when set, ExpectBody found in the response body.
	ExpectStatusMin int    `yaml:"expect_status_min,omitempty"`
	ExpectStatusMax int    `yaml:"expect_status_max,omitempty"`
	ExpectBody      string `yaml:"expect_body,omitempty"`
}

type GRPCHealthCheckConfig struct {
	Address string `yaml:"address"`
	Service string `yaml:"service,omitempty"`
}

type TCPHealthCheckConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type ExecHealthCheckConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// HealthCheckConfig describes a service's readiness endpoint and success predicate
type HealthCheckConfig struct {
	Type HealthCheckType `yaml:"type"`

	HTTP HTTPHealthCheckConfig `yaml:"http,omitempty"`
	GRPC GRPCHealthCheckConfig `yaml:"grpc,omitempty"`
	TCP  TCPHealthCheckConfig  `yaml:"tcp,omitempty"`
	Exec ExecHealthCheckConfig `yaml:"exec,omitempty"`

	// Timeout bounds a single probe attempt
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Probe performs one readiness check attempt
type Probe interface {
	Check(ctx context.Context) (bool, string)
}

// ProbeFunc adapts a function to Probe
type ProbeFunc func(ctx context.Context) (bool, string)

func (f ProbeFunc) Check(ctx context.Context) (bool, string) {
	return f(ctx)
}

// NewProbe builds the probe for a validated health check configuration
func NewProbe(config HealthCheckConfig) (Probe, error) {
	if err := ValidateHealthCheckConfig(config); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	switch config.Type {
	case HealthCheckTypeHTTP:
		return &httpProbe{config: config.HTTP, client: &http.Client{Timeout: timeout}}, nil
	case HealthCheckTypeGRPC:
		return &grpcProbe{config: config.GRPC, timeout: timeout}, nil
	case HealthCheckTypeTCP:
		return &tcpProbe{config: config.TCP, timeout: timeout}, nil
	default:
		return &execProbe{config: config.Exec, timeout: timeout}, nil
	}
}

type httpProbe struct {
	config HTTPHealthCheckConfig
	client *http.Client
}

func (p *httpProbe) Check(ctx context.Context) (bool, string) {
	method := p.config.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.URL, nil)
	if err != nil {
		return false, fmt.Sprintf("Failed to create HTTP request: %v", err)
	}
	for key, value := range p.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("HTTP request failed: %v", err)
	}
	defer resp.Body.Close()

	minStatus, maxStatus := p.config.ExpectStatusMin, p.config.ExpectStatusMax
	if minStatus == 0 {
		minStatus = 200
	}
	if maxStatus == 0 {
		maxStatus = 299
	}
	if resp.StatusCode < minStatus || resp.StatusCode > maxStatus {
		return false, fmt.Sprintf("HTTP health check failed: %s", resp.Status)
	}

	if p.config.ExpectBody != "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return false, fmt.Sprintf("Failed to read HTTP response body: %v", err)
		}
		if !strings.Contains(string(body), p.config.ExpectBody) {
			return false, fmt.Sprintf("HTTP response does not contain %q", p.config.ExpectBody)
		}
	}

	return true, fmt.Sprintf("HTTP health check passed: %s", resp.Status)
}

type grpcProbe struct {
	config  GRPCHealthCheckConfig
	timeout time.Duration
}

func (p *grpcProbe) Check(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, p.config.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return false, fmt.Sprintf("gRPC connection failed: %v", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: p.config.Service})
	if err != nil {
		return false, fmt.Sprintf("gRPC health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return false, fmt.Sprintf("gRPC service status: %s", resp.GetStatus())
	}

	return true, fmt.Sprintf("gRPC service serving at %s", p.config.Address)
}

type tcpProbe struct {
	config  TCPHealthCheckConfig
	timeout time.Duration
}

func (p *tcpProbe) Check(ctx context.Context) (bool, string) {
	address := net.JoinHostPort(p.config.Address, fmt.Sprintf("%d", p.config.Port))

	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return false, fmt.Sprintf("TCP connection failed: %v", err)
	}
	defer conn.Close()

	return true, fmt.Sprintf("TCP connection successful to %s", address)
}

type execProbe struct {
	config  ExecHealthCheckConfig
	timeout time.Duration
}

func (p *execProbe) Check(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, p.config.Command, p.config.Args...).CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return false, fmt.Sprintf("Exec health check timed out after %v", p.timeout)
	}
	if err != nil {
		return false, fmt.Sprintf("Exec health check failed: %v, output: %s", err, strings.TrimSpace(string(output)))
	}

	return true, "Exec health check passed"
}
