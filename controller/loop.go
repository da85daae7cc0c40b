package controller

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"github.com/pkg/errors"

	"github.com/avakist/PHN16Manager/system/battery"
	"github.com/avakist/PHN16Manager/system/power"
	"github.com/avakist/PHN16Manager/system/quirk"
)

func (c *Controller) handleFirmwareEvent(haltCtx context.Context) {
	for {
		select {
		case raw := <-c.firmwareEvCh:
			ev, err := DecodeEvent(raw)
			if err != nil {
				log.Printf("[controller] %s\n", err)
				continue
			}
			c.routeEvent(ev)
		case <-haltCtx.Done():
			log.Println("[controller] exiting handleFirmwareEvent")
			return
		}
	}
}

// routeEvent maps a decoded event to its work queue. The turbo key
// reports key 4 on most machines; the newest nitro firmware reuses
// key 4 for profile cycling and has no dedicated turbo state.
func (c *Controller) routeEvent(ev Event) {
	switch ev.Function {
	case EventTurboKey:
		log.Printf("[controller] turbo key pressed (key %d)\n", ev.Key)
		nitroV4 := c.Hardware.Caps.Has(quirk.CapNitroSenseV4)
		if ev.Key == 0x4 && !nitroV4 {
			c.workQueueCh[fnTurboToggle].noisy <- struct{}{}
		}
		if (ev.Key == 0x5 || (ev.Key == 0x4 && nitroV4)) &&
			c.Hardware.Caps.Has(quirk.CapPlatformProfile) {
			c.workQueueCh[fnCycleProfile].noisy <- struct{}{}
		}

	case EventACSwitch:
		if !c.Hardware.Caps.HasAny(quirk.CapPredatorSense, quirk.CapNitroSenseV4) {
			return
		}
		switch ev.Key {
		case 0, 1:
			c.workQueueCh[fnACSwitch].noisy <- ev
		default:
			log.Printf("[controller] unknown AC switch key %d\n", ev.Key)
		}

	case EventCalibration:
		if !c.Hardware.Caps.HasAny(quirk.CapPredatorSense, quirk.CapNitroSense, quirk.CapNitroSenseV4) {
			return
		}
		c.workQueueCh[fnCalibration].noisy <- ev

	case EventHotkey, EventKbdDock, EventBatteryBoost:
		log.Printf("[controller] unhandled event function 0x%x key %d\n", ev.Function, ev.Key)

	default:
		log.Printf("[controller] unknown event function 0x%x\n", ev.Function)
	}
}

func (c *Controller) handlePowerEvent(haltCtx context.Context) {
	for {
		select {
		case ev := <-c.powerEvCh:
			switch ev {
			case power.PBT_APMRESUMESUSPEND:
				// ignore this event
			case power.PBT_APMSUSPEND:
				log.Println("[controller] housekeeping before suspend")
				c.workQueueCh[fnBeforeSuspend].noisy <- struct{}{}
			case power.PBT_APMRESUMEAUTOMATIC:
				log.Println("[controller] housekeeping after suspend")
				c.workQueueCh[fnAfterSuspend].noisy <- struct{}{}
			}
		case <-haltCtx.Done():
			log.Println("[controller] exiting handlePowerEvent")
			return
		}
	}
}

func (c *Controller) handleWorkQueue(haltCtx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := r.(error)
			c.errorCh <- err
		}
	}()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case ev := <-c.workQueueCh[fnTurboToggle].clean:
			log.Printf("[controller] turbo key pressed %d times\n", ev.Counter)
			c.doToggleTurbo()

		case ev := <-c.workQueueCh[fnCycleProfile].clean:
			log.Printf("[controller] mode key pressed %d times\n", ev.Counter)
			c.doCycleProfile()

		case ev := <-c.workQueueCh[fnACSwitch].clean:
			c.doACSwitch(ev.Data.(Event))

		case ev := <-c.workQueueCh[fnCalibration].clean:
			event := ev.Data.(Event)
			log.Printf("[controller] calibration event, status %d\n", event.Key)
			if err := c.Battery.SetRaw(battery.Calibration, event.Key); err != nil {
				log.Printf("[controller] error changing calibration state: %s\n", err)
			}

		case <-c.workQueueCh[fnPersistConfigs].clean:
			c.doPersist()

		case <-c.workQueueCh[fnApplyConfigs].clean:
			if err := c.Registry.Load(); err != nil {
				c.errorCh <- errors.Wrap(err, "[controller] error loading configurations from state mirror")
				return
			}
			if err := c.Registry.Apply(); err != nil {
				// the firmware may refuse during early boot; saved
				// state is still intact
				log.Printf("[controller] error applying configurations: %s\n", err)
			}

		case <-c.workQueueCh[fnBeforeSuspend].clean:
			c.doPersist()

		case <-c.workQueueCh[fnAfterSuspend].clean:
			log.Println("[controller] re-applying configurations after resume")
			if c.Lighting != nil {
				c.Lighting.InitEngine()
			}
			c.workQueueCh[fnApplyConfigs].noisy <- struct{}{}

		case <-haltCtx.Done():
			log.Println("[controller] exiting handleWorkQueue")
			return
		}
	}
}

func (c *Controller) doToggleTurbo() {
	wasOn, err := c.Thermal.ToggleTurbo()
	if err != nil {
		log.Printf("[controller] error toggling turbo: %s\n", err)
		return
	}
	if wasOn {
		c.notify("Turbo disengaged")
	} else {
		c.notify("Turbo engaged")
	}
	c.workQueueCh[fnPersistConfigs].noisy <- struct{}{}
}

func (c *Controller) doCycleProfile() {
	next, err := c.Thermal.Cycle()
	if err != nil {
		log.Printf("[controller] error cycling thermal profile: %s\n", err)
		return
	}
	c.notify(fmt.Sprintf("Thermal profile: %s", next))
	c.workQueueCh[fnPersistConfigs].noisy <- struct{}{}
}

// doACSwitch records the state of the side we are leaving and restores
// the saved state of the side we are entering. Key 0 is AC lost, key 1
// is AC gained.
func (c *Controller) doACSwitch(ev Event) {
	var leaving, entering power.Source
	switch ev.Key {
	case 0:
		leaving, entering = power.AC, power.Battery
	case 1:
		leaving, entering = power.Battery, power.AC
	}

	log.Printf("[controller] power source switched to %s\n", entering)

	if err := c.Thermal.UpdateState(leaving); err != nil {
		log.Printf("[controller] error recording %s state: %s\n", leaving, err)
	}
	if err := c.Thermal.RestoreState(entering); err != nil {
		log.Printf("[controller] error restoring %s state: %s\n", entering, err)
		return
	}
	c.notify(fmt.Sprintf("Power source: %s", entering))
	c.workQueueCh[fnPersistConfigs].noisy <- struct{}{}
}

// doPersist snapshots the live state into the registered configs and
// saves the mirror. Snapshot and save failures are logged; the mirror
// is a convenience, a full disk must not take the controller down.
func (c *Controller) doPersist() {
	src, err := power.Query(c.Channel)
	if err != nil {
		log.Printf("[controller] cannot determine power source: %s\n", err)
	} else if err := c.Thermal.UpdateState(src); err != nil {
		log.Printf("[controller] error snapshotting thermal state: %s\n", err)
	}

	if c.Lighting != nil {
		if err := c.Lighting.Refresh(); err != nil {
			log.Printf("[controller] error snapshotting keyboard state: %s\n", err)
		}
	}

	if err := c.Registry.Save(); err != nil {
		log.Printf("[controller] error saving to state mirror: %s\n", err)
	}
}
