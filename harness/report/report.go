// Package report writes run reports and bundles the logs of a workspace
package report

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"code.linksmart.eu/dt/sensor-fleet/harness/buffer"
	"code.linksmart.eu/dt/sensor-fleet/model"
	"github.com/mholt/archiver"
	copier "github.com/otiai10/copy"
	"gopkg.in/yaml.v2"
)

const (
	BufferCapacity = 255
	reportPrefix   = "harness_"
	bundleDir      = "logs"
)

// Recorder keeps the most recent lifecycle events of a phase
type Recorder struct {
	buffer buffer.Buffer
	done   chan struct{}
}

// Record consumes events from the channel until it is closed
func Record(events <-chan interface{}) *Recorder {
	r := &Recorder{
		buffer: buffer.NewBuffer(BufferCapacity),
		done:   make(chan struct{}),
	}
	go func() {
		for e := range events {
			if event, ok := e.(model.Event); ok {
				r.buffer.Insert(event)
			}
		}
		close(r.done)
	}()
	return r
}

// Events returns the recorded events, waiting for the channel to be closed first
func (r *Recorder) Events() []model.Event {
	<-r.done
	return r.buffer.Collect()
}

// Path returns the location of the report of a phase
func Path(workspace string, phase model.Phase, runID string) string {
	return filepath.Join(workspace, fmt.Sprintf("%s%s_%s.yaml", reportPrefix, phase, runID))
}

// Write stores the report in the workspace and returns its path
func Write(r *model.Report) (string, error) {
	b, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("error encoding report: %w", err)
	}
	path := Path(r.Config.WorkspaceFolder, r.Phase, r.RunID)
	err = ioutil.WriteFile(path, b, 0644)
	if err != nil {
		return "", &model.FileSystemError{Op: "write report", Path: path, Err: err}
	}
	log.Println("report: Saved", path)
	return path, nil
}

// Read loads a report written by Write
func Read(path string) (*model.Report, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &model.FileSystemError{Op: "read report", Path: path, Err: err}
	}
	var r model.Report
	err = yaml.Unmarshal(b, &r)
	if err != nil {
		return nil, fmt.Errorf("error parsing report %s: %w", path, err)
	}
	return &r, nil
}

// Files lists the log files and reports in the workspace, relative to it
func Files(workspace string) ([]string, error) {
	var files []string
	err := filepath.Walk(workspace, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasSuffix(name, ".log") ||
			(strings.HasPrefix(name, reportPrefix) && strings.HasSuffix(name, ".yaml")) {
			rel, err := filepath.Rel(workspace, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, &model.FileSystemError{Op: "walk", Path: workspace, Err: err}
	}
	return files, nil
}

// Collect bundles the logs and reports of the workspace into a tar.gz archive.
// An existing archive is overwritten.
// Files keep their path relative to the workspace below a top-level logs directory.
func Collect(workspace, archive string) ([]string, error) {
	files, err := Files(workspace)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no log files in %s", workspace)
	}

	tmp, err := ioutil.TempDir("", "sensor-fleet-")
	if err != nil {
		return nil, &model.FileSystemError{Op: "create temp dir", Path: os.TempDir(), Err: err}
	}
	defer os.RemoveAll(tmp)

	root := filepath.Join(tmp, bundleDir)
	for _, f := range files {
		err = copier.Copy(filepath.Join(workspace, f), filepath.Join(root, f))
		if err != nil {
			return nil, &model.FileSystemError{Op: "copy", Path: f, Err: err}
		}
	}

	err = os.MkdirAll(filepath.Dir(archive), 0755)
	if err != nil {
		return nil, &model.FileSystemError{Op: "create archive directory", Path: filepath.Dir(archive), Err: err}
	}
	out, err := os.Create(archive)
	if err != nil {
		return nil, &model.FileSystemError{Op: "create archive", Path: archive, Err: err}
	}
	defer out.Close()
	err = archiver.TarGz.Write(out, []string{root})
	if err != nil {
		return nil, &model.FileSystemError{Op: "archive", Path: archive, Err: err}
	}
	log.Printf("report: Collected %d files into %s", len(files), archive)
	return files, nil
}
