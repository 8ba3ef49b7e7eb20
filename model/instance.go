package model

import (
	"path/filepath"
	"strconv"
)

// SensorInstance is one simulated sensor environment in the workspace
type SensorInstance struct {
	Index  int    `yaml:"index"`
	Dir    string `yaml:"dir"`
	Binary string `yaml:"binary"`
}

func (s SensorInstance) Name() string {
	return SensorDirPrefix + strconv.Itoa(s.Index)
}

// LogFile returns the path of the named log file inside the instance directory
func (s SensorInstance) LogFile(name string) string {
	return filepath.Join(s.Dir, name)
}
