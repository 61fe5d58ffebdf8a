package integration

// Mode represents the execution mode of a single dependency
type Mode string

const (
	// ModeLive performs real I/O against the dependency
	ModeLive Mode = "LIVE"
	// ModeDryRun bypasses the dependency and synthesizes a success
	ModeDryRun Mode = "DRY_RUN"
)

// IsDryRun returns true if the mode bypasses real I/O
func (m Mode) IsDryRun() bool {
	return m == ModeDryRun
}

// String returns the string representation of Mode
func (m Mode) String() string {
	return string(m)
}

// ExecutionModes holds the resolved execution mode for every dependency.
// Constructed once at process start and shared read-only afterwards.
type ExecutionModes struct {
	Database   Mode
	Downstream Mode
	Notifier   Mode
}

// ResolveModes maps the three independent dry-run switches to execution
// modes. Pure function, every flag combination is valid.
func ResolveModes(databaseDryRun, downstreamDryRun, notifierDryRun bool) ExecutionModes {
	toMode := func(dryRun bool) Mode {
		if dryRun {
			return ModeDryRun
		}
		return ModeLive
	}
	return ExecutionModes{
		Database:   toMode(databaseDryRun),
		Downstream: toMode(downstreamDryRun),
		Notifier:   toMode(notifierDryRun),
	}
}
