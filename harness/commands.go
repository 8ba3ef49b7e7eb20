package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"code.linksmart.eu/dt/sensor-fleet/harness/env"
	"code.linksmart.eu/dt/sensor-fleet/harness/launcher"
	"code.linksmart.eu/dt/sensor-fleet/harness/payload"
	"code.linksmart.eu/dt/sensor-fleet/harness/report"
	"code.linksmart.eu/dt/sensor-fleet/model"
	"github.com/spf13/pflag"
)

const eventCapacity = 64

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: harness <command> [flags]

Commands:
  prepare   copy the sensor and management-console executables into the workspace
            and initialize the sensors
  run       start all sensors against the IOTA bridge
  payload   write a random meter reading to be sent with --file-to-send
  collect   bundle all logs and run reports of the workspace into a tar.gz archive

The workspace is configured with NUMBER_OF_SENSORS, RUST_TARGET_FOLDER,
WORKSPACE_FOLDER, IOTA_BRIDGE_URL, NODE_HOST and FAILOVER_IOTA_BRIDGE_URL,
read from the environment or ./.env
`)
}

func run(args []string) error {
	err := dispatch(args)
	if err == pflag.ErrHelp {
		return nil
	}
	return err
}

func dispatch(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "prepare":
		return prepareCommand(args[1:])
	case "run":
		return runCommand(args[1:])
	case "payload":
		return payloadCommand(args[1:])
	case "collect":
		return collectCommand(args[1:])
	case "help", "-h", "--help":
		usage(os.Stdout)
		return nil
	}
	return errUsage
}

// harnessFlags override the harness options of the environment
type harnessFlags struct {
	wait              string
	logMode           string
	stagger           time.Duration
	init              string
	failOnSensorError bool
}

func (h *harnessFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&h.wait, "wait", "", "sensors to wait for: last, all or none (env "+env.Wait+")")
	fs.StringVar(&h.logMode, "log-mode", "", "per-instance or shared log files (env "+env.LogMode+")")
	fs.DurationVar(&h.stagger, "stagger", 0, "delay between successive launches (env "+env.Stagger+")")
	fs.BoolVar(&h.failOnSensorError, "fail-on-sensor-error", false, "exit with an error if an awaited process failed")
}

// config loads the environment and applies the flags that were set
func (h *harnessFlags) config(fs *pflag.FlagSet) (*model.HarnessConfig, error) {
	c, err := env.Config(os.Getenv)
	if err != nil {
		return nil, err
	}
	if fs.Changed("wait") {
		c.Wait, err = model.ParseWaitPolicy(h.wait)
		if err != nil {
			return nil, &model.ConfigurationError{Key: "--wait", Err: err}
		}
	}
	if fs.Changed("log-mode") {
		c.LogMode, err = model.ParseLogMode(h.logMode)
		if err != nil {
			return nil, &model.ConfigurationError{Key: "--log-mode", Err: err}
		}
	}
	if fs.Changed("stagger") {
		if h.stagger < 0 {
			return nil, &model.ConfigurationError{Key: "--stagger", Err: errors.New("must not be negative")}
		}
		c.Stagger = h.stagger
	}
	if fs.Changed("init") {
		c.Init, err = model.ParseInitMode(h.init)
		if err != nil {
			return nil, &model.ConfigurationError{Key: "--init", Err: err}
		}
	}
	return c, nil
}

func parse(fs *pflag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return nil
}

func prepareCommand(args []string) error {
	var h harnessFlags
	fs := pflag.NewFlagSet("prepare", pflag.ContinueOnError)
	h.add(fs)
	fs.StringVar(&h.init, "init", "", "initialization: none, single or multiple (env "+env.Init+")")
	err := parse(fs, args)
	if err != nil {
		return err
	}
	c, err := h.config(fs)
	if err != nil {
		return err
	}

	return phase(c, model.PhasePrepare, nil, h.failOnSensorError, func(ctx context.Context, f *launcher.Fleet) error {
		_, err := f.Prepare(ctx)
		return err
	})
}

func runCommand(args []string) error {
	var (
		h       harnessFlags
		file    string
		size    int
		lorawan bool
	)
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	h.add(fs)
	fs.StringVar(&file, "file-to-send", model.DefaultPayloadFile, "payload file, relative to the sensor directory")
	fs.IntVar(&size, "random-msg-of-size", 0, "send a random message of this size instead of a file")
	fs.BoolVar(&lorawan, "use-lorawan-rest-api", true, "send the file through the LoRaWAN REST API")
	err := parse(fs, args)
	if err != nil {
		return err
	}

	p := model.FilePayload(file)
	p.UseLorawanRestAPI = lorawan
	if fs.Changed("random-msg-of-size") {
		if fs.Changed("file-to-send") {
			p.RandomSize = size
		} else {
			p = model.RandomPayload(size)
		}
	}
	err = payload.Validate(p)
	if err != nil {
		return err
	}

	c, err := h.config(fs)
	if err != nil {
		return err
	}

	return phase(c, model.PhaseRun, &p, h.failOnSensorError, func(ctx context.Context, f *launcher.Fleet) error {
		_, err := f.Run(ctx, p)
		return err
	})
}

// phase runs one phase of the fleet and writes its report.
// Processes left running are not stopped when the harness exits.
func phase(c *model.HarnessConfig, name model.Phase, p *model.Payload, failOnSensorError bool,
	do func(context.Context, *launcher.Fleet) error) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := launcher.NewBus(eventCapacity)
	recorder := report.Record(bus.Subscribe())
	go logEvents(bus.Subscribe())

	r := &model.Report{
		RunID:   c.RunID,
		Phase:   name,
		Started: time.Now(),
		Config:  *c,
		Payload: p,
	}
	log.Printf("%s: Run %s with %d sensors, waiting for %s", name, c.RunID, c.NumberOfSensors, c.Wait)

	f := launcher.NewFleet(c, bus)
	err := do(ctx, f)

	bus.Close()
	r.Finished = time.Now()
	r.Processes = f.Records()
	r.Events = recorder.Events()

	// nothing to report on if the workspace could not be created
	if _, statErr := os.Stat(c.WorkspaceFolder); statErr == nil {
		_, reportErr := report.Write(r)
		if reportErr != nil {
			log.Printf("%s: %s", name, reportErr)
		}
	}
	if err != nil {
		return err
	}

	if failOnSensorError {
		for _, pr := range r.Processes {
			if pr.Awaited && pr.Exited && pr.ExitCode != 0 {
				return fmt.Errorf("%s exited with status %d", model.ProcessName(pr.Role, pr.Index), pr.ExitCode)
			}
		}
	}
	log.Printf("%s: Done.", name)
	return nil
}

func logEvents(events <-chan interface{}) {
	for e := range events {
		event, ok := e.(model.Event)
		if !ok {
			continue
		}
		if event.Type == model.EventExited {
			log.Printf("event: %s (pid %d) exited with status %d", model.ProcessName(event.Role, event.Index), event.PID, event.ExitCode)
		} else if env.Debug {
			log.Printf("event: %s (pid %d) %s", model.ProcessName(event.Role, event.Index), event.PID, event.Type)
		}
	}
}

func payloadCommand(args []string) error {
	var out string
	fs := pflag.NewFlagSet("payload", pflag.ContinueOnError)
	fs.StringVar(&out, "out", filepath.Join("payloads", "meter_reading_1_compact.json"), "path of the generated payload")
	err := parse(fs, args)
	if err != nil {
		return err
	}

	m, err := payload.Generate(out)
	if err != nil {
		return err
	}
	log.Printf("payload: Wrote reading of meter %s to %s", m.MeterID, out)
	return nil
}

func collectCommand(args []string) error {
	var workspace, out string
	fs := pflag.NewFlagSet("collect", pflag.ContinueOnError)
	fs.StringVar(&workspace, "workspace", os.Getenv(env.WorkspaceFolder), "workspace to collect the logs of (env "+env.WorkspaceFolder+")")
	fs.StringVar(&out, "out", "sensor_fleet_logs.tar.gz", "tar.gz archive to write")
	err := parse(fs, args)
	if err != nil {
		return err
	}
	if workspace == "" {
		return &model.ConfigurationError{Key: env.WorkspaceFolder, Err: errors.New("not set")}
	}

	_, err = report.Collect(workspace, out)
	return err
}
