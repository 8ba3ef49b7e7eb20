package model

import "strconv"

// DefaultPayloadFile is resolved relative to the sensor working directory
const DefaultPayloadFile = "../../../payloads/meter_reading_1_compact.json"

// Payload describes what every sensor sends during the run phase.
// Either File or RandomSize is set.
type Payload struct {
	File              string `yaml:"file,omitempty"`
	RandomSize        int    `yaml:"randomSize,omitempty"`
	UseLorawanRestAPI bool   `yaml:"useLorawanRestAPI,omitempty"`
}

// FilePayload sends the given file through the LoRaWAN REST API
func FilePayload(path string) Payload {
	return Payload{File: path, UseLorawanRestAPI: true}
}

// RandomPayload sends a random message of the given size in bytes
func RandomPayload(size int) Payload {
	return Payload{RandomSize: size}
}

func (p Payload) String() string {
	if p.File != "" {
		return "file " + p.File
	}
	return "random message of " + strconv.Itoa(p.RandomSize) + " bytes"
}
