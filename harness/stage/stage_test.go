package stage

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"code.linksmart.eu/dt/sensor-fleet/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var (
	sensorContent     = []byte("#!/bin/sh\necho sensor\n")
	controllerContent = []byte("#!/bin/sh\necho management-console\n")
)

func testConfig(t *testing.T, n int) *model.HarnessConfig {
	target := t.TempDir()
	err := ioutil.WriteFile(filepath.Join(target, model.SensorBinary), sensorContent, 0755)
	if err != nil {
		t.Fatal(err)
	}
	err = ioutil.WriteFile(filepath.Join(target, model.ControllerBinary), controllerContent, 0755)
	if err != nil {
		t.Fatal(err)
	}
	return &model.HarnessConfig{
		NumberOfSensors: n,
		TargetFolder:    target,
		WorkspaceFolder: filepath.Join(t.TempDir(), "ws"),
		BridgeURL:       "http://127.0.0.1:50000",
	}
}

func stage(c *model.HarnessConfig) error {
	err := Workspace(c)
	if err != nil {
		return err
	}
	_, err = Sensors(c)
	return err
}

// layout lists the workspace as relative paths
func layout(t *testing.T, root string) []string {
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return paths
}

func checkLayout(c *model.HarnessConfig) error {
	b, err := ioutil.ReadFile(c.ControllerPath())
	if err != nil {
		return err
	}
	if !bytes.Equal(b, controllerContent) {
		return fmt.Errorf("controller copy differs")
	}
	entries, err := ioutil.ReadDir(c.WorkspaceFolder)
	if err != nil {
		return err
	}
	// sensor directories plus the controller
	if len(entries) != c.NumberOfSensors+1 {
		return fmt.Errorf("expected %d entries in workspace but got %d", c.NumberOfSensors+1, len(entries))
	}
	for _, s := range c.Instances() {
		info, err := os.Stat(s.Binary)
		if err != nil {
			return err
		}
		if info.Mode()&0100 == 0 {
			return fmt.Errorf("%s is not executable", s.Binary)
		}
		b, err := ioutil.ReadFile(s.Binary)
		if err != nil {
			return err
		}
		if !bytes.Equal(b, sensorContent) {
			return fmt.Errorf("%s differs from source", s.Binary)
		}
	}
	return nil
}

func TestStage(t *testing.T) {
	c := testConfig(t, 2)

	err := stage(c)
	if err != nil {
		t.Fatalf("Error staging: %s", err)
	}
	err = checkLayout(c)
	if err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{"sensor_0", "sensor_1"} {
		if _, err := os.Stat(filepath.Join(c.WorkspaceFolder, dir, "sensor")); err != nil {
			t.Fatalf("Expected sensor in %s: %s", dir, err)
		}
	}
}

func TestStageIdempotent(t *testing.T) {
	c := testConfig(t, 3)

	err := stage(c)
	if err != nil {
		t.Fatalf("Error staging: %s", err)
	}
	first := layout(t, c.WorkspaceFolder)

	err = stage(c)
	if err != nil {
		t.Fatalf("Error staging again: %s", err)
	}
	second := layout(t, c.WorkspaceFolder)

	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("Workspace changed after second stage:\n%v\n%v", first, second)
	}
	err = checkLayout(c)
	if err != nil {
		t.Fatal(err)
	}
}

func TestStageMissingSensor(t *testing.T) {
	c := testConfig(t, 3)
	err := os.Remove(c.SensorSource())
	if err != nil {
		t.Fatal(err)
	}

	err = stage(c)
	var fsErr *model.FileSystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("Expected FileSystemError but got %T: %v", err, err)
	}
	if fsErr.Path != c.Instance(0).Binary {
		t.Fatalf("Expected failure on the first copy but got: %s", err)
	}

	for i := 1; i < c.NumberOfSensors; i++ {
		if _, err := os.Stat(c.Instance(i).Dir); !os.IsNotExist(err) {
			t.Fatalf("Directory of sensor %d should not exist.", i)
		}
	}
}

func TestStageMissingController(t *testing.T) {
	c := testConfig(t, 1)
	err := os.Remove(c.ControllerSource())
	if err != nil {
		t.Fatal(err)
	}

	err = Workspace(c)
	var fsErr *model.FileSystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("Expected FileSystemError but got %T: %v", err, err)
	}
}

func TestStageFleetSize(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 15
	properties := gopter.NewProperties(parameters)

	properties.Property("stages N sensor directories and one controller", prop.ForAll(
		func(n int) bool {
			c := testConfig(t, n)
			if err := stage(c); err != nil {
				t.Log(err)
				return false
			}
			if err := checkLayout(c); err != nil {
				t.Log(err)
				return false
			}
			return true
		},
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}
