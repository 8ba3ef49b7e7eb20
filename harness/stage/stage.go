// Package stage prepares the workspace: one directory per sensor holding a
// copy of the sensor executable, plus one management-console copy in the root.
package stage

import (
	"log"
	"os"

	"code.linksmart.eu/dt/sensor-fleet/model"
	copier "github.com/otiai10/copy"
)

// Workspace creates the workspace root and copies the management-console into it
func Workspace(c *model.HarnessConfig) error {
	err := os.MkdirAll(c.WorkspaceFolder, 0755)
	if err != nil {
		return &model.FileSystemError{Op: "create workspace", Path: c.WorkspaceFolder, Err: err}
	}
	return copyBinary(c.ControllerSource(), c.ControllerPath())
}

// Sensor creates the instance directory and copies the sensor executable into it.
// An existing copy is overwritten.
func Sensor(c *model.HarnessConfig, s model.SensorInstance) error {
	err := os.MkdirAll(s.Dir, 0755)
	if err != nil {
		return &model.FileSystemError{Op: "create sensor directory", Path: s.Dir, Err: err}
	}
	return copyBinary(c.SensorSource(), s.Binary)
}

// Sensors stages every instance in ordinal order, stopping at the first error.
// Copies done before the error are kept.
func Sensors(c *model.HarnessConfig) ([]model.SensorInstance, error) {
	instances := c.Instances()
	for _, s := range instances {
		err := Sensor(c, s)
		if err != nil {
			return nil, err
		}
		log.Printf("stage: Copied sensor %d.", s.Index)
	}
	return instances, nil
}

func copyBinary(src, dst string) error {
	err := copier.Copy(src, dst)
	if err != nil {
		return &model.FileSystemError{Op: "copy " + src + " to", Path: dst, Err: err}
	}
	// the copy keeps the source mode, make sure it can be executed anyway
	info, err := os.Stat(dst)
	if err != nil {
		return &model.FileSystemError{Op: "stat", Path: dst, Err: err}
	}
	if info.Mode()&0100 == 0 {
		err = os.Chmod(dst, info.Mode()|0111)
		if err != nil {
			return &model.FileSystemError{Op: "chmod", Path: dst, Err: err}
		}
	}
	return nil
}
