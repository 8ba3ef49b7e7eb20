// Package payload checks run payloads and generates synthetic meter readings
// that the sensors can send with --file-to-send.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"code.linksmart.eu/dt/sensor-fleet/model"
	"github.com/Pallinder/go-randomdata"
	"github.com/pbnjay/memory"
)

const key = "payload"

// Validate checks that exactly one payload mode is selected
// and that a random message fits comfortably into memory.
func Validate(p model.Payload) error {
	switch {
	case p.File != "" && p.RandomSize != 0:
		return &model.ConfigurationError{Key: key, Err: errors.New("file and random message are mutually exclusive")}
	case p.File == "" && p.RandomSize == 0:
		return &model.ConfigurationError{Key: key, Err: errors.New("either a file or a random message size is required")}
	case p.RandomSize < 0:
		return &model.ConfigurationError{Key: key, Err: fmt.Errorf("invalid random message size %d", p.RandomSize)}
	}
	if p.RandomSize > 0 {
		limit := memory.TotalMemory() / 2
		if limit > 0 && uint64(p.RandomSize) > limit {
			return &model.ConfigurationError{Key: key, Err: fmt.Errorf("random message of %d bytes exceeds the limit of %d bytes", p.RandomSize, limit)}
		}
	}
	return nil
}

// MeterReading is the compact meter reading document sent by the sensors
type MeterReading struct {
	MeterID   string  `json:"meter_id"`
	Location  string  `json:"location"`
	Timestamp string  `json:"timestamp"`
	Reading   float64 `json:"reading"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
}

// NewMeterReading returns a reading with random values
func NewMeterReading(now time.Time) MeterReading {
	return MeterReading{
		MeterID:   fmt.Sprintf("%s-%06d", randomdata.SillyName(), randomdata.Number(0, 1000000)),
		Location:  randomdata.City(),
		Timestamp: now.UTC().Format(time.RFC3339),
		Reading:   randomdata.Decimal(0, 100000, 3),
		Unit:      "kWh",
		Status:    "ok",
	}
}

// Generate writes a random meter reading as compact JSON to path
func Generate(path string) (*MeterReading, error) {
	m := NewMeterReading(time.Now())
	b, err := json.Marshal(&m)
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, &model.FileSystemError{Op: "create payload directory", Path: filepath.Dir(path), Err: err}
	}
	err = ioutil.WriteFile(path, b, 0644)
	if err != nil {
		return nil, &model.FileSystemError{Op: "write payload", Path: path, Err: err}
	}
	return &m, nil
}
