package domain

import "strings"

// Endpoint is an externally reachable URL of a service
type Endpoint struct {
	Name string
	URL  string
}

// Service is a named unit of deployment. The build and run capabilities are
// provided by the platform and addressed by Name.
type Service struct {
	Name      string
	Endpoints []Endpoint
}

// ServiceSet is the scope an operation applies to: every configured service
// or a single named one. Names are kept in configuration order.
type ServiceSet struct {
	names []string
	all   bool
}

// AllServices scopes an operation to every configured service.
func AllServices(names []string) ServiceSet {
	copied := make([]string, len(names))
	copy(copied, names)
	return ServiceSet{names: copied, all: true}
}

// SingleService scopes an operation to one service.
func SingleService(name string) ServiceSet {
	return ServiceSet{names: []string{name}}
}

func (s ServiceSet) Names() []string {
	copied := make([]string, len(s.names))
	copy(copied, s.names)
	return copied
}

func (s ServiceSet) IsAll() bool {
	return s.all
}

func (s ServiceSet) Len() int {
	return len(s.names)
}

func (s ServiceSet) Contains(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

func (s ServiceSet) String() string {
	if s.all {
		return "all services"
	}
	return strings.Join(s.names, ",")
}
