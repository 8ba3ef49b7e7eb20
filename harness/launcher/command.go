package launcher

import (
	"strconv"

	"code.linksmart.eu/dt/sensor-fleet/model"
)

// Command-line flags understood by the sensor and management-console executables
const (
	FlagInitSensor                    = "--init-sensor"
	FlagInitMultipleSensors           = "--init-multiple-sensors"
	FlagNode                          = "--node"
	FlagBridgeURL                     = "--iota-bridge-url"
	FlagFailoverBridgeURL             = "--failover-iota-bridge-url"
	FlagActAsRemoteControlledSensor   = "--act-as-remote-controlled-sensor"
	FlagExitAfterSuccessfulInitialize = "--exit-after-successful-initialization"
	FlagFileToSend                    = "--file-to-send"
	FlagUseLorawanRestAPI             = "--use-lorawan-rest-api"
	FlagRandomMsgOfSize               = "--random-msg-of-size"
)

// Command describes a process to be launched
type Command struct {
	Role  model.Role
	Index int // sensor ordinal, -1 for the controller
	Path  string
	Args  []string
	Dir   string // working directory
	Log   string // stdout and stderr are appended to this file
	// Truncate empties the log file before the process starts
	Truncate bool
}

func (c Command) Name() string {
	return model.ProcessName(c.Role, c.Index)
}

// SensorRunArgs builds the sensor arguments of the run phase
func SensorRunArgs(c *model.HarnessConfig, p model.Payload) []string {
	var args []string
	if p.File != "" {
		args = append(args, FlagFileToSend, p.File)
		if p.UseLorawanRestAPI {
			args = append(args, FlagUseLorawanRestAPI)
		}
	} else {
		args = append(args, FlagRandomMsgOfSize, strconv.Itoa(p.RandomSize))
	}
	args = append(args, FlagBridgeURL, c.BridgeURL)
	if c.FailoverBridgeURL != "" {
		args = append(args, FlagFailoverBridgeURL, c.FailoverBridgeURL)
	}
	return args
}

// SensorInitArgs lets the sensor wait for the management-console and exit once initialized
func SensorInitArgs(c *model.HarnessConfig) []string {
	return []string{
		FlagActAsRemoteControlledSensor,
		FlagExitAfterSuccessfulInitialize,
		FlagBridgeURL, c.BridgeURL,
	}
}

// ControllerInitSensorArgs initializes one remote controlled sensor
func ControllerInitSensorArgs(c *model.HarnessConfig) []string {
	return []string{FlagInitSensor, FlagBridgeURL, c.BridgeURL}
}

// ControllerInitMultipleArgs initializes all remote controlled sensors in parallel
func ControllerInitMultipleArgs(c *model.HarnessConfig) []string {
	args := []string{FlagInitMultipleSensors, FlagBridgeURL, c.BridgeURL}
	if c.NodeHost != "" {
		args = append(args, FlagNode, c.NodeHost)
	}
	return args
}
