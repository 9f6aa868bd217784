package domain

// LifecycleState is the platform-reported state of a service
type LifecycleState string

const (
	LifecycleRunning LifecycleState = "running"
	LifecycleStopped LifecycleState = "stopped"
	LifecycleUnknown LifecycleState = "unknown"
)

// ServiceState is one service's entry in a DeploymentState
type ServiceState struct {
	Service   string
	Lifecycle LifecycleState
	Container string
	Health    string // platform-reported container health, if any
}

// DeploymentState is a snapshot queried from the platform. It is never cached
// across stages; query again when a fresh view is needed.
type DeploymentState map[string]ServiceState

// Lifecycle returns the state of a service; services absent from the snapshot are stopped.
func (d DeploymentState) Lifecycle(service string) LifecycleState {
	if state, ok := d[service]; ok {
		return state.Lifecycle
	}
	return LifecycleStopped
}

// AnyRunning reports whether any service in scope is running or of unknown state.
func (d DeploymentState) AnyRunning(scope ServiceSet) bool {
	for _, name := range scope.Names() {
		switch d.Lifecycle(name) {
		case LifecycleRunning, LifecycleUnknown:
			return true
		}
	}
	return false
}

// UnknownState marks every service in scope as unknown.
func UnknownState(scope ServiceSet) DeploymentState {
	state := make(DeploymentState, scope.Len())
	for _, name := range scope.Names() {
		state[name] = ServiceState{Service: name, Lifecycle: LifecycleUnknown}
	}
	return state
}
