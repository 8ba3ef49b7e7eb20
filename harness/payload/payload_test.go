package payload

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"code.linksmart.eu/dt/sensor-fleet/model"
	"github.com/davecgh/go-spew/spew"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload model.Payload
		valid   bool
	}{
		{"file", model.FilePayload(model.DefaultPayloadFile), true},
		{"random", model.RandomPayload(1024), true},
		{"nothing", model.Payload{}, false},
		{"both", model.Payload{File: "a.json", RandomSize: 10}, false},
		{"negative size", model.RandomPayload(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.payload)
			if tt.valid && err != nil {
				t.Fatalf("Unexpected error: %s", err)
			}
			if !tt.valid {
				var confErr *model.ConfigurationError
				if !errors.As(err, &confErr) {
					t.Fatalf("Expected ConfigurationError for %s but got: %v", spew.Sdump(tt.payload), err)
				}
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payloads", "meter_reading_1_compact.json")

	m, err := Generate(path)
	if err != nil {
		t.Fatalf("Error generating payload: %s", err)
	}

	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var read MeterReading
	err = json.Unmarshal(b, &read)
	if err != nil {
		t.Fatalf("Generated payload is not valid JSON: %s\n%s", err, b)
	}
	if read != *m {
		t.Fatalf("Written payload differs:\n%s\n%s", spew.Sdump(read), spew.Sdump(m))
	}
	if read.MeterID == "" || read.Location == "" || read.Unit != "kWh" {
		t.Fatalf("Incomplete reading:\n%s", spew.Sdump(read))
	}
	if _, err := time.Parse(time.RFC3339, read.Timestamp); err != nil {
		t.Fatalf("Invalid timestamp %q: %s", read.Timestamp, err)
	}
}
