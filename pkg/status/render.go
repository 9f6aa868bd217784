package status

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/core-tools/hsu-stack/pkg/domain"
)

const notRunning = "not running"

// Render writes the snapshot as a table followed by the endpoint list
func Render(w io.Writer, snapshot domain.StatusSnapshot) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(table, "SERVICE\tSTATE\tHEALTH\tCPU\tMEMORY")
	for _, service := range snapshot.Services {
		health := service.Health
		if health == "" {
			health = "-"
		}
		cpu, memory := notRunning, notRunning
		if service.Usage != nil {
			cpu = service.Usage.CPUPercent
			memory = fmt.Sprintf("%s (%s)", service.Usage.MemUsage, service.Usage.MemPercent)
		} else if service.Lifecycle == domain.LifecycleRunning {
			cpu, memory = "n/a", "n/a"
		}
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\n", service.Service, service.Lifecycle, health, cpu, memory)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	endpoints := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := false
	for _, service := range snapshot.Services {
		for _, endpoint := range service.Endpoints {
			if !header {
				fmt.Fprintln(endpoints, "\nEndpoints:")
				header = true
			}
			fmt.Fprintf(endpoints, "  %s\t%s\t%s\n", service.Service, endpoint.Name, endpoint.URL)
		}
	}
	return endpoints.Flush()
}
