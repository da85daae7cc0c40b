package controller

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/avakist/PHN16Manager/system/battery"
	"github.com/avakist/PHN16Manager/system/fan"
	"github.com/avakist/PHN16Manager/system/lighting"
	"github.com/avakist/PHN16Manager/system/persist"
	"github.com/avakist/PHN16Manager/system/quirk"
	"github.com/avakist/PHN16Manager/system/thermal"
	"github.com/avakist/PHN16Manager/system/wmi"
	"github.com/avakist/PHN16Manager/util"
)

// RunConfig contains the start up configuration for the controller
type RunConfig struct {
	// Model is the DMI product name of the machine
	Model string

	// StateDir is where the persisted state mirror lives
	StateDir string

	// CycleThermalProfile selects ladder cycling for the mode key
	CycleThermalProfile bool

	DryRun bool

	NotifierCh chan util.Notification
}

// Dependencies are the initialized controls handed to the controller
// service and to any auxiliary surface that needs them.
type Dependencies struct {
	Channel  *wmi.Channel
	Hardware quirk.Hardware

	Fan      *fan.Control
	Thermal  *thermal.Control
	Lighting *lighting.Control
	Battery  *battery.Control
	Registry persist.ConfigRegistry
}

// GetDependencies opens the firmware channel, matches the hardware
// table, and constructs every feature control the machine supports.
func GetDependencies(conf RunConfig) (*Dependencies, error) {
	hw, ok := quirk.Lookup(conf.Model)
	if !ok {
		return nil, errors.Errorf("unsupported model %q", conf.Model)
	}
	log.Printf("hardware matched: %s\n", hw.Model)

	var transport wmi.Transport
	var err error
	if conf.DryRun {
		transport, err = wmi.NewDryTransport()
	} else {
		transport, err = wmi.NewTransport(false)
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot open firmware transport")
	}

	channel, err := wmi.NewChannel(transport)
	if err != nil {
		return nil, errors.Wrap(err, "cannot initialize firmware channel")
	}

	var registry persist.ConfigRegistry
	if conf.DryRun {
		registry, err = persist.NewDryFileHelper(conf.StateDir)
	} else {
		registry, err = persist.NewFileHelper(conf.StateDir)
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot initialize state mirror")
	}

	fanCtrl, err := fan.NewControl(fan.Config{
		Channel:  channel,
		Hardware: hw,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot initialize fan control")
	}

	thermalCtrl, err := thermal.NewControl(thermal.Config{
		Channel:   channel,
		Hardware:  hw,
		Fan:       fanCtrl,
		CycleMode: conf.CycleThermalProfile,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot initialize thermal control")
	}
	registry.Register(thermalCtrl)

	var lightingCtrl *lighting.Control
	if hw.FourZoneKB {
		lightingCtrl, err = lighting.NewControl(lighting.Config{
			Channel:  channel,
			Hardware: hw,
		})
		if err != nil {
			return nil, errors.Wrap(err, "cannot initialize keyboard lighting control")
		}
		registry.Register(lightingCtrl)
	}

	batteryCtrl, err := battery.NewControl(channel)
	if err != nil {
		return nil, errors.Wrap(err, "cannot initialize battery control")
	}

	return &Dependencies{
		Channel:  channel,
		Hardware: hw,
		Fan:      fanCtrl,
		Thermal:  thermalCtrl,
		Lighting: lightingCtrl,
		Battery:  batteryCtrl,
		Registry: registry,
	}, nil
}

// Run assembles the controls and blocks serving the controller loop
// until the context is cancelled.
func Run(haltCtx context.Context, conf RunConfig) error {
	dep, err := GetDependencies(conf)
	if err != nil {
		return errors.Wrap(err, "error initializing controls")
	}

	control, err := New(Config{
		Channel:  dep.Channel,
		Hardware: dep.Hardware,
		Thermal:  dep.Thermal,
		Lighting: dep.Lighting,
		Battery:  dep.Battery,
		Registry: dep.Registry,
		Notifier: conf.NotifierCh,
	})
	if err != nil {
		return errors.Wrap(err, "error initializing controller")
	}

	return control.Serve(haltCtx)
}
