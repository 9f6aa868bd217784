package platform

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	"github.com/core-tools/hsu-stack/pkg/domain"
)

// psEntry is one container of `compose ps --format json`
type psEntry struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
}

// statsEntry is one line of `stats --no-stream --format {{json .}}`
type statsEntry struct {
	Name     string `json:"Name"`
	CPUPerc  string `json:"CPUPerc"`
	MemUsage string `json:"MemUsage"`
	MemPerc  string `json:"MemPerc"`
}

// decodeJSONList accepts either a JSON array or one JSON object per line.
// Compose v2 switched from the former to the latter in 2.21.
func decodeJSONList[T any](output []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var entries []T
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var entries []T
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry T
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// parseState folds container entries into per-service lifecycle. A service
// with several containers is running when any of them runs.
func parseState(output []byte, scope domain.ServiceSet) (domain.DeploymentState, error) {
	entries, err := decodeJSONList[psEntry](output)
	if err != nil {
		return nil, err
	}

	state := make(domain.DeploymentState)
	for _, entry := range entries {
		if !scope.Contains(entry.Service) {
			continue
		}
		lifecycle := lifecycleOf(entry.State)
		current, seen := state[entry.Service]
		if seen && current.Lifecycle == domain.LifecycleRunning {
			continue
		}
		if seen && lifecycle == domain.LifecycleStopped {
			continue
		}
		state[entry.Service] = domain.ServiceState{
			Service:   entry.Service,
			Lifecycle: lifecycle,
			Container: entry.Name,
			Health:    entry.Health,
		}
	}
	return state, nil
}

func lifecycleOf(containerState string) domain.LifecycleState {
	switch strings.ToLower(strings.TrimSpace(containerState)) {
	case "running", "restarting", "paused":
		return domain.LifecycleRunning
	case "created", "exited", "dead", "removing":
		return domain.LifecycleStopped
	default:
		return domain.LifecycleUnknown
	}
}

func parseStats(output []byte) (map[string]domain.ResourceUsage, error) {
	entries, err := decodeJSONList[statsEntry](output)
	if err != nil {
		return nil, err
	}

	usage := make(map[string]domain.ResourceUsage, len(entries))
	for _, entry := range entries {
		usage[strings.TrimPrefix(entry.Name, "/")] = domain.ResourceUsage{
			CPUPercent: entry.CPUPerc,
			MemUsage:   entry.MemUsage,
			MemPercent: entry.MemPerc,
		}
	}
	return usage, nil
}
