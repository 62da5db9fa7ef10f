package orchestrator

// SystemStatus is the derived health verdict of spec.md §4.4 Health
// protocol.
type SystemStatus string

const (
	StatusOptimal  SystemStatus = "optimal"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// HealthReport is the aggregated result of calling health() on every
// configured node in parallel.
type HealthReport struct {
	OnlineCount int
	Total       int
	PerNode     []bool
	Status      SystemStatus
}

func deriveStatus(online, k, m int) SystemStatus {
	switch {
	case online == m:
		return StatusOptimal
	case online >= k:
		return StatusDegraded
	default:
		return StatusCritical
	}
}
