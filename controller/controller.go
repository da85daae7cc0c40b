package controller

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/avakist/PHN16Manager/system/battery"
	"github.com/avakist/PHN16Manager/system/lighting"
	"github.com/avakist/PHN16Manager/system/persist"
	"github.com/avakist/PHN16Manager/system/power"
	"github.com/avakist/PHN16Manager/system/quirk"
	"github.com/avakist/PHN16Manager/system/thermal"
	"github.com/avakist/PHN16Manager/system/wmi"
	"github.com/avakist/PHN16Manager/util"
)

// Work queue identifiers. Key-driven entries are debounced so a held
// key cannot flood the firmware; state transitions pass through.
const (
	fnPersistConfigs = iota // for debouncing saves to the state mirror
	fnApplyConfigs          // for loading and re-applying configurations
	fnTurboToggle           // for the dedicated turbo key
	fnCycleProfile          // for the mode key
	fnACSwitch              // for AC plug/unplug transitions
	fnCalibration           // for the battery calibration event
	fnBeforeSuspend         // for doing work before suspend
	fnAfterSuspend          // for doing work after suspend
)

type workQueue struct {
	noisy chan<- interface{}
	clean <-chan util.DebounceEvent
}

// Config contains the configurations for the controller
type Config struct {
	Channel  *wmi.Channel
	Hardware quirk.Hardware

	Thermal  *thermal.Control
	Lighting *lighting.Control
	Battery  *battery.Control
	Registry persist.ConfigRegistry

	// Notifier receives user facing messages. Optional.
	Notifier chan<- util.Notification
}

// Controller routes firmware notifications to the feature controls.
type Controller struct {
	Config

	workQueueCh map[uint32]workQueue
	errorCh     chan error

	firmwareEvCh chan []byte
	powerEvCh    chan uint32
}

func New(conf Config) (*Controller, error) {
	if conf.Channel == nil {
		return nil, errors.New("[controller] nil Channel is invalid")
	}
	if conf.Thermal == nil {
		return nil, errors.New("[controller] nil Thermal is invalid")
	}
	if conf.Battery == nil {
		return nil, errors.New("[controller] nil Battery is invalid")
	}
	if conf.Registry == nil {
		return nil, errors.New("[controller] nil Registry is invalid")
	}
	return &Controller{
		Config: conf,

		workQueueCh: make(map[uint32]workQueue, 8),
		errorCh:     make(chan error),

		firmwareEvCh: make(chan []byte, 4),
		powerEvCh:    make(chan uint32, 1),
	}, nil
}

func (c *Controller) initialize(haltCtx context.Context) error {
	if err := wmi.NewEventListener(haltCtx, c.firmwareEvCh); err != nil {
		return errors.Wrap(err, "[controller] error initializing firmware event listener")
	}

	if err := power.NewEventListener(haltCtx, c.powerEvCh); err != nil {
		return errors.Wrap(err, "[controller] error initializing power event listener")
	}

	if c.Lighting != nil {
		c.Lighting.InitEngine()
	}

	if err := c.Thermal.Probe(); err != nil {
		return errors.Wrap(err, "[controller] cannot probe supported thermal profiles")
	}

	debounced := []uint32{
		fnTurboToggle,
		fnCycleProfile,
	}
	for _, key := range debounced {
		in, out := util.Debounce(haltCtx, time.Millisecond*500)
		c.workQueueCh[key] = workQueue{
			noisy: in,
			clean: out,
		}
	}

	immediate := []uint32{
		fnApplyConfigs,
		fnACSwitch,
		fnCalibration,
		fnBeforeSuspend,
		fnAfterSuspend,
	}
	for _, work := range immediate {
		in, out := util.PassThrough(haltCtx)
		c.workQueueCh[work] = workQueue{
			noisy: in,
			clean: out,
		}
	}

	in, out := util.Debounce(haltCtx, time.Second)
	c.workQueueCh[fnPersistConfigs] = workQueue{
		noisy: in,
		clean: out,
	}

	// load the state mirror and re-apply the saved state
	c.workQueueCh[fnApplyConfigs].noisy <- struct{}{}

	return nil
}

func (c *Controller) notify(message string) {
	if c.Notifier == nil {
		return
	}
	select {
	case c.Notifier <- util.Notification{Message: message}:
	default:
		// notifications are best effort
	}
}

// String satisfies suture's named service convention
func (c *Controller) String() string {
	return "Controller"
}

// Serve starts the controller loop and blocks until context cancel or
// an unrecoverable error.
func (c *Controller) Serve(haltCtx context.Context) error {
	ctx, cancel := context.WithCancel(haltCtx)
	defer func() {
		c.Registry.Close()
		cancel()
	}()

	log.Println("[controller] starting controller loop")

	if err := c.initialize(ctx); err != nil {
		return errors.Wrap(err, "[controller] error initializing")
	}

	go c.handleFirmwareEvent(ctx)
	go c.handlePowerEvent(ctx)
	go c.handleWorkQueue(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-c.errorCh:
			log.Printf("[controller] unrecoverable error in controller loop: %v\n", err)
			return err
		}
	}
}
