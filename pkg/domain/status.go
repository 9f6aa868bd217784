package domain

// ResourceUsage is a best-effort utilization sample
type ResourceUsage struct {
	CPUPercent string
	MemUsage   string
	MemPercent string
}

type ServiceStatus struct {
	Service   string
	Lifecycle LifecycleState
	Health    string
	Usage     *ResourceUsage // nil when the service is not running
	Endpoints []Endpoint
}

// StatusSnapshot is what the status reporter returns for a scope
type StatusSnapshot struct {
	Services []ServiceStatus
}
