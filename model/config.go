package model

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

const (
	SensorBinary     = "sensor"
	ControllerBinary = "management-console"
	SensorDirPrefix  = "sensor_"

	PrepareLogFile = "prepare_multi_sensor_test.log"
	RunLogFile     = "run_multi_sensor_test.log"
)

// WaitPolicy selects which launched sensors the run phase blocks on
type WaitPolicy string

const (
	WaitLast WaitPolicy = "last" // only the highest ordinal is awaited
	WaitAll  WaitPolicy = "all"
	WaitNone WaitPolicy = "none"
)

// LogMode selects where child output is redirected to
type LogMode string

const (
	LogPerInstance LogMode = "per-instance" // a log file in every process' working directory
	LogShared      LogMode = "shared"       // one append-only file in the workspace root
)

// InitMode selects the initialization handshake done during the prepare phase
type InitMode string

const (
	InitNone     InitMode = "none"
	InitSingle   InitMode = "single"   // management-console --init-sensor once per sensor
	InitMultiple InitMode = "multiple" // management-console --init-multiple-sensors once for all
)

func ParseWaitPolicy(s string) (WaitPolicy, error) {
	switch p := WaitPolicy(s); p {
	case WaitLast, WaitAll, WaitNone:
		return p, nil
	}
	return "", fmt.Errorf("unknown wait policy %q, expected one of: last, all, none", s)
}

func ParseLogMode(s string) (LogMode, error) {
	switch m := LogMode(s); m {
	case LogPerInstance, LogShared:
		return m, nil
	}
	return "", fmt.Errorf("unknown log mode %q, expected one of: per-instance, shared", s)
}

func ParseInitMode(s string) (InitMode, error) {
	switch m := InitMode(s); m {
	case InitNone, InitSingle, InitMultiple:
		return m, nil
	}
	return "", fmt.Errorf("unknown init mode %q, expected one of: none, single, multiple", s)
}

// HarnessConfig is built once at start up and passed to every operation.
// It must not be modified afterwards.
type HarnessConfig struct {
	RunID string `yaml:"runID"`

	NumberOfSensors   int    `yaml:"numberOfSensors"`
	TargetFolder      string `yaml:"targetFolder"`
	WorkspaceFolder   string `yaml:"workspaceFolder"`
	BridgeURL         string `yaml:"bridgeURL"`
	FailoverBridgeURL string `yaml:"failoverBridgeURL,omitempty"`
	NodeHost          string `yaml:"nodeHost,omitempty"`

	Wait    WaitPolicy    `yaml:"wait"`
	LogMode LogMode       `yaml:"logMode"`
	Stagger time.Duration `yaml:"stagger"`
	Init    InitMode      `yaml:"init"`
}

// SensorSource is the path of the prebuilt sensor executable
func (c *HarnessConfig) SensorSource() string {
	return filepath.Join(c.TargetFolder, SensorBinary)
}

// ControllerSource is the path of the prebuilt management-console executable
func (c *HarnessConfig) ControllerSource() string {
	return filepath.Join(c.TargetFolder, ControllerBinary)
}

// ControllerPath is where the management-console is staged
func (c *HarnessConfig) ControllerPath() string {
	return filepath.Join(c.WorkspaceFolder, ControllerBinary)
}

// Instance returns the sensor instance with the given ordinal
func (c *HarnessConfig) Instance(index int) SensorInstance {
	dir := filepath.Join(c.WorkspaceFolder, SensorDirPrefix+strconv.Itoa(index))
	return SensorInstance{
		Index:  index,
		Dir:    dir,
		Binary: filepath.Join(dir, SensorBinary),
	}
}

// Instances returns all sensor instances in ordinal order
func (c *HarnessConfig) Instances() []SensorInstance {
	instances := make([]SensorInstance, c.NumberOfSensors)
	for i := range instances {
		instances[i] = c.Instance(i)
	}
	return instances
}
