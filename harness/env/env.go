package env

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"code.linksmart.eu/dt/sensor-fleet/model"
	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"
	uuid "github.com/satori/go.uuid"
)

const (
	NumberOfSensors   = "NUMBER_OF_SENSORS"
	TargetFolder      = "RUST_TARGET_FOLDER"
	WorkspaceFolder   = "WORKSPACE_FOLDER"
	BridgeURL         = "IOTA_BRIDGE_URL"
	NodeHost          = "NODE_HOST"
	FailoverBridgeURL = "FAILOVER_IOTA_BRIDGE_URL"

	Wait    = "HARNESS_WAIT"
	LogMode = "HARNESS_LOG_MODE"
	Stagger = "HARNESS_STAGGER"
	Init    = "HARNESS_INIT"

	_debug          = "DEBUG"            // print debug messages
	_disableLogTime = "DISABLE_LOG_TIME" // disable timestamp in logs
	_envFile        = "./.env"           // path to environment variables file
)

var (
	Debug         = false
	LogTimestamps = true
)

// Eval returns the boolean value of the env variable with the given key
func Eval(key string) bool {
	return os.Getenv(key) == "1" || os.Getenv(key) == "true" || os.Getenv(key) == "TRUE"
}

// Load sets env variables from the .env file, if there is one.
// Variables already set in the environment are not overridden.
func Load() {
	err := godotenv.Load(_envFile)
	if err == nil {
		log.Println("Loaded environment file:", _envFile)
	}

	Debug = Eval(_debug)
	LogTimestamps = !Eval(_disableLogTime)
}

// Lookup reads a single variable. os.Getenv satisfies it.
type Lookup func(key string) string

// Config builds the harness configuration from environment variables.
// Every error is a *model.ConfigurationError.
func Config(getenv Lookup) (*model.HarnessConfig, error) {
	c := &model.HarnessConfig{
		RunID:           uuid.NewV4().String(),
		TargetFolder:    strings.TrimSuffix(getenv(TargetFolder), "/"),
		WorkspaceFolder: strings.TrimSuffix(getenv(WorkspaceFolder), "/"),
		NodeHost:        getenv(NodeHost),
		Wait:            model.WaitLast,
		LogMode:         model.LogPerInstance,
		Init:            model.InitSingle,
	}

	s := getenv(NumberOfSensors)
	if s == "" {
		return nil, missing(NumberOfSensors)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, &model.ConfigurationError{Key: NumberOfSensors, Err: err}
	}
	if n < 1 {
		return nil, &model.ConfigurationError{Key: NumberOfSensors, Err: fmt.Errorf("must be positive, got %d", n)}
	}
	c.NumberOfSensors = n

	if c.TargetFolder == "" {
		return nil, missing(TargetFolder)
	}
	if c.WorkspaceFolder == "" {
		return nil, missing(WorkspaceFolder)
	}

	c.BridgeURL, err = parseURL(BridgeURL, getenv(BridgeURL))
	if err != nil {
		return nil, err
	}
	if c.BridgeURL == "" {
		return nil, missing(BridgeURL)
	}
	c.FailoverBridgeURL, err = parseURL(FailoverBridgeURL, getenv(FailoverBridgeURL))
	if err != nil {
		return nil, err
	}

	if s := getenv(Wait); s != "" {
		c.Wait, err = model.ParseWaitPolicy(s)
		if err != nil {
			return nil, &model.ConfigurationError{Key: Wait, Err: err}
		}
	}
	if s := getenv(LogMode); s != "" {
		c.LogMode, err = model.ParseLogMode(s)
		if err != nil {
			return nil, &model.ConfigurationError{Key: LogMode, Err: err}
		}
	}
	if s := getenv(Init); s != "" {
		c.Init, err = model.ParseInitMode(s)
		if err != nil {
			return nil, &model.ConfigurationError{Key: Init, Err: err}
		}
	}
	if s := getenv(Stagger); s != "" {
		c.Stagger, err = time.ParseDuration(s)
		if err != nil {
			return nil, &model.ConfigurationError{Key: Stagger, Err: err}
		}
		if c.Stagger < 0 {
			return nil, &model.ConfigurationError{Key: Stagger, Err: errors.New("must not be negative")}
		}
	}

	if Debug {
		log.Printf("Harness configuration:\n%s", spew.Sdump(c))
	}
	return c, nil
}

func missing(key string) error {
	return &model.ConfigurationError{Key: key, Err: errors.New("not set")}
}

// parseURL checks an endpoint and returns it verbatim. Empty input is not an error.
func parseURL(key, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &model.ConfigurationError{Key: key, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &model.ConfigurationError{Key: key, Err: fmt.Errorf("%q is not an absolute URL", raw)}
	}
	return raw, nil
}
