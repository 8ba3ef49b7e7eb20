package model

import "time"

type Phase string

const (
	PhasePrepare Phase = "prepare"
	PhaseRun     Phase = "run"
)

// ProcessRecord describes one launched process in a run report
type ProcessRecord struct {
	Role    Role     `yaml:"role"`
	Index   int      `yaml:"index"`
	Dir     string   `yaml:"dir"`
	Args    []string `yaml:"args"`
	Log     string   `yaml:"log"`
	PID     int      `yaml:"pid"`
	Awaited bool     `yaml:"awaited"`
	// Terminated is set when the harness stopped the process itself
	Terminated bool `yaml:"terminated"`
	Exited     bool `yaml:"exited"`
	ExitCode   int  `yaml:"exitCode"`
}

// Report is written to the workspace after every phase
type Report struct {
	RunID     string          `yaml:"runID"`
	Phase     Phase           `yaml:"phase"`
	Started   time.Time       `yaml:"started"`
	Finished  time.Time       `yaml:"finished"`
	Config    HarnessConfig   `yaml:"config"`
	Payload   *Payload        `yaml:"payload,omitempty"`
	Processes []ProcessRecord `yaml:"processes"`
	Events    []Event         `yaml:"events,omitempty"`
}
