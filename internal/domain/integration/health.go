package integration

// SubsystemStatus is the verdict for a single probed dependency
type SubsystemStatus string

const (
	// SubsystemUp means the probe round-tripped successfully
	SubsystemUp SubsystemStatus = "up"
	// SubsystemDown means the probe failed
	SubsystemDown SubsystemStatus = "down"
	// SubsystemSkipped means the dependency runs in dry-run mode and was not probed
	SubsystemSkipped SubsystemStatus = "skipped_dry_run"
)

// HealthStatus is the composite readiness verdict, assembled fresh on every
// probe and never persisted.
type HealthStatus struct {
	Database   SubsystemStatus `json:"database"`
	Downstream SubsystemStatus `json:"downstream"`
}

// Ready returns true when no subsystem reports Down
func (h HealthStatus) Ready() bool {
	return h.Database != SubsystemDown && h.Downstream != SubsystemDown
}
