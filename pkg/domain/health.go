package domain

// HealthVerdict is the outcome of probing one service
type HealthVerdict struct {
	Service      string
	Healthy      bool
	AttemptsUsed int
	Message      string
}

// AllHealthy is the aggregate verdict: true only if every verdict is healthy.
func AllHealthy(verdicts []HealthVerdict) bool {
	if len(verdicts) == 0 {
		return false
	}
	for _, v := range verdicts {
		if !v.Healthy {
			return false
		}
	}
	return true
}

// UnhealthyServices lists the names of failed verdicts in order.
func UnhealthyServices(verdicts []HealthVerdict) []string {
	var names []string
	for _, v := range verdicts {
		if !v.Healthy {
			names = append(names, v.Service)
		}
	}
	return names
}
