package model

import "fmt"

// ConfigurationError is returned for missing or invalid settings.
// It is always raised before anything is written to disk.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// FileSystemError is returned when staging directories or binaries fails
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

// ProcessSpawnError is returned when a child process could not be started
type ProcessSpawnError struct {
	Path string
	Dir  string
	Err  error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("error starting %s in %s: %s", e.Path, e.Dir, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error { return e.Err }
