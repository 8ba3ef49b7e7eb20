package launcher

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"code.linksmart.eu/dt/sensor-fleet/harness/payload"
	"code.linksmart.eu/dt/sensor-fleet/harness/stage"
	"code.linksmart.eu/dt/sensor-fleet/model"
)

// how long a terminated process may take to exit
const stopTimeout = 5 * time.Second

// Fleet drives the prepare and run phases of one harness invocation
type Fleet struct {
	sync.Mutex
	conf     *model.HarnessConfig
	launcher *Launcher

	// log files opened in the current phase, the first opener truncates
	opened  map[string]bool
	handles []*Handle
	awaited map[*Handle]bool
}

func NewFleet(conf *model.HarnessConfig, bus *Bus) *Fleet {
	return &Fleet{
		conf:     conf,
		launcher: &Launcher{RunID: conf.RunID, Bus: bus},
	}
}

// Prepare stages the workspace and runs the configured initialization handshake
func (f *Fleet) Prepare(ctx context.Context) ([]*Handle, error) {
	f.reset()
	c := f.conf

	log.Printf("prepare: Preparing %d sensor environments in %s", c.NumberOfSensors, c.WorkspaceFolder)
	err := stage.Workspace(c)
	if err != nil {
		return f.Handles(), err
	}

	if c.Init != model.InitSingle {
		_, err = stage.Sensors(c)
		if err != nil {
			return f.Handles(), err
		}
		if c.Init == model.InitMultiple {
			err = f.initMultiple(ctx)
		}
		return f.Handles(), err
	}

	for _, s := range c.Instances() {
		log.Printf("prepare: Preparing sensor environment #%d", s.Index)
		err = stage.Sensor(c, s)
		if err != nil {
			return f.Handles(), err
		}
		log.Printf("prepare: Copied sensor %d. Starting sensor initialization.", s.Index)

		f.launchDetached(f.controller(ControllerInitSensorArgs(c), model.PrepareLogFile))
		err = f.launchAndWait(ctx, f.sensor(s, SensorInitArgs(c), model.PrepareLogFile))
		if err != nil {
			return f.Handles(), err
		}
	}
	return f.Handles(), nil
}

// initMultiple starts all sensors in the background and lets the
// management-console initialize them in one go. The management-console keeps
// searching for sensors until it is stopped, so it is terminated once every
// sensor has finished its initialization.
func (f *Fleet) initMultiple(ctx context.Context) error {
	c := f.conf
	var sensors []*Handle
	for i, s := range c.Instances() {
		if i > 0 {
			err := f.stagger(ctx)
			if err != nil {
				return err
			}
		}
		h, err := f.launch(f.sensor(s, SensorInitArgs(c), model.PrepareLogFile), true)
		if err != nil {
			return err
		}
		sensors = append(sensors, h)
	}

	log.Printf("prepare: Initializing %d sensors.", c.NumberOfSensors)
	controller, err := f.launch(f.controller(ControllerInitMultipleArgs(c), model.PrepareLogFile), false)
	if err != nil {
		return err
	}
	defer f.stop(controller)

	for _, h := range sensors {
		err = f.await(ctx, h)
		if err != nil {
			return err
		}
	}
	log.Printf("prepare: %d sensors finished their initialization.", len(sensors))
	return nil
}

// Run starts every sensor with the given payload. Which of them are awaited
// depends on the wait policy of the configuration.
func (f *Fleet) Run(ctx context.Context, p model.Payload) ([]*Handle, error) {
	f.reset()
	c := f.conf

	err := payload.Validate(p)
	if err != nil {
		return nil, err
	}

	args := SensorRunArgs(c, p)
	last := c.NumberOfSensors - 1
	for i, s := range c.Instances() {
		awaitLast := i == last && c.Wait == model.WaitLast
		// only asynchronous launches are staggered
		if i > 0 && !awaitLast {
			err = f.stagger(ctx)
			if err != nil {
				return f.Handles(), err
			}
		}
		log.Printf("run: Start sensor in environment #%d", s.Index)
		if awaitLast {
			err = f.launchAndWait(ctx, f.sensor(s, args, model.RunLogFile))
			if err != nil {
				return f.Handles(), err
			}
			continue
		}
		if c.Wait == model.WaitAll {
			_, err = f.launch(f.sensor(s, args, model.RunLogFile), true)
			if err != nil {
				return f.Handles(), err
			}
			continue
		}
		f.launchDetached(f.sensor(s, args, model.RunLogFile))
	}

	if c.Wait == model.WaitAll {
		for _, h := range f.Handles() {
			err = f.await(ctx, h)
			if err != nil {
				return f.Handles(), err
			}
		}
	}
	return f.Handles(), nil
}

func (f *Fleet) stagger(ctx context.Context) error {
	if f.conf.Stagger <= 0 {
		return nil
	}
	t := time.NewTimer(f.conf.Stagger)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fleet) sensor(s model.SensorInstance, args []string, logName string) Command {
	logPath := s.LogFile(logName)
	if f.conf.LogMode == model.LogShared {
		logPath = filepath.Join(f.conf.WorkspaceFolder, logName)
	}
	return Command{
		Role:  model.RoleSensor,
		Index: s.Index,
		Path:  s.Binary,
		Args:  args,
		Dir:   s.Dir,
		Log:   logPath,
	}
}

func (f *Fleet) controller(args []string, logName string) Command {
	return Command{
		Role:  model.RoleController,
		Index: -1,
		Path:  f.conf.ControllerPath(),
		Args:  args,
		Dir:   f.conf.WorkspaceFolder,
		Log:   filepath.Join(f.conf.WorkspaceFolder, logName),
	}
}

// launch starts the command and records its handle
func (f *Fleet) launch(c Command, awaited bool) (*Handle, error) {
	f.Lock()
	c.Truncate = !f.opened[c.Log]
	f.opened[c.Log] = true
	f.Unlock()

	h, err := f.launcher.Launch(c)
	if err != nil {
		return nil, err
	}

	f.Lock()
	f.handles = append(f.handles, h)
	f.awaited[h] = awaited
	f.Unlock()
	return h, nil
}

// launchDetached starts a process that is not waited for.
// A failed start is logged and skipped.
func (f *Fleet) launchDetached(c Command) {
	_, err := f.launch(c, false)
	if err != nil {
		log.Printf("launcher: %s", err)
	}
}

func (f *Fleet) launchAndWait(ctx context.Context, c Command) error {
	h, err := f.launch(c, true)
	if err != nil {
		return err
	}
	return f.await(ctx, h)
}

// await blocks until the process exits or the context is done.
// The exit status is logged, not returned.
func (f *Fleet) await(ctx context.Context, h *Handle) error {
	f.Lock()
	f.awaited[h] = true
	f.Unlock()

	select {
	case <-h.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := h.Wait(); err != nil {
		log.Printf("launcher: %s (pid %d) ended: %s", h.Name(), h.PID, err)
	} else {
		log.Printf("launcher: %s (pid %d) ended successfully.", h.Name(), h.PID)
	}
	return nil
}

// stop terminates the process and gives it a moment to exit
func (f *Fleet) stop(h *Handle) {
	err := h.Terminate()
	if err != nil {
		log.Printf("launcher: Error terminating %s (pid %d): %s", h.Name(), h.PID, err)
		return
	}
	t := time.NewTimer(stopTimeout)
	defer t.Stop()
	select {
	case <-h.Done():
		log.Printf("launcher: Stopped %s (pid %d).", h.Name(), h.PID)
	case <-t.C:
		log.Printf("launcher: %s (pid %d) did not stop within %s", h.Name(), h.PID, stopTimeout)
	}
}

func (f *Fleet) reset() {
	f.Lock()
	defer f.Unlock()
	f.opened = make(map[string]bool)
	f.handles = nil
	f.awaited = make(map[*Handle]bool)
}

// Handles returns the processes launched in the last phase, in launch order
func (f *Fleet) Handles() []*Handle {
	f.Lock()
	defer f.Unlock()
	return append([]*Handle(nil), f.handles...)
}

// Records describes the processes launched in the last phase
func (f *Fleet) Records() []model.ProcessRecord {
	f.Lock()
	defer f.Unlock()

	records := make([]model.ProcessRecord, len(f.handles))
	for i, h := range f.handles {
		records[i] = model.ProcessRecord{
			Role:       h.Role,
			Index:      h.Index,
			Dir:        h.Dir,
			Args:       h.Args,
			Log:        h.Log,
			PID:        h.PID,
			Awaited:    f.awaited[h],
			Terminated: h.Terminated(),
			Exited:     h.Exited(),
			ExitCode:   h.ExitCode(),
		}
	}
	return records
}
