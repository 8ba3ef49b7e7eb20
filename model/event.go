package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleSensor     Role = "sensor"
	RoleController Role = "controller"
)

// ProcessName names a launched process in log lines, like "sensor 2" or "controller"
func ProcessName(role Role, index int) string {
	if role == RoleController {
		return string(role)
	}
	return fmt.Sprintf("%s %d", role, index)
}

type EventType string

const (
	// Event types
	EventLaunched EventType = "LAUNCHED" // process started
	EventExited   EventType = "EXITED"   // process ended, exit code is known
)

// Event is a lifecycle record of a launched process
type Event struct {
	Type     EventType `yaml:"type"`
	RunID    string    `yaml:"runID"`
	Role     Role      `yaml:"role"`
	Index    int       `yaml:"index"` // sensor ordinal, -1 for the controller
	PID      int       `yaml:"pid"`
	ExitCode int       `yaml:"exitCode"`
	Error    string    `yaml:"error,omitempty"`
	Time     time.Time `yaml:"time"`
}
