package power

import (
	"context"
	"log"
	"unsafe"

	"golang.org/x/sys/windows"
)

// adapted from https://golang.org/src/runtime/os_windows.go

var (
	libPowrProf                            = windows.NewLazySystemDLL("powrprof.dll")
	powerRegisterSuspendResumeNotification = libPowrProf.NewProc("PowerRegisterSuspendResumeNotification")
)

// Suspend/resume change types as delivered by the callback.
const (
	PBT_APMSUSPEND         uint32 = 4
	PBT_APMRESUMESUSPEND   uint32 = 7
	PBT_APMRESUMEAUTOMATIC uint32 = 18
)

// NewEventListener registers for suspend/resume notifications and sends
// the change type to the channel. The controller re-applies thermal and
// lighting state on resume since the firmware forgets both.
func NewEventListener(haltCtx context.Context, eventCh chan uint32) error {
	const (
		_DEVICE_NOTIFY_CALLBACK = 2
	)
	type _DEVICE_NOTIFY_SUBSCRIBE_PARAMETERS struct {
		callback uintptr
		context  uintptr
	}

	var fn interface{} = func(context uintptr, changeType uint32, setting uintptr) uintptr {
		eventCh <- changeType
		return 0
	}

	params := _DEVICE_NOTIFY_SUBSCRIBE_PARAMETERS{
		callback: windows.NewCallback(fn),
	}
	handle := uintptr(0)

	log.Println("power: registering suspend/resume notification")
	ret, _, err := powerRegisterSuspendResumeNotification.Call(
		_DEVICE_NOTIFY_CALLBACK,
		uintptr(unsafe.Pointer(&params)),
		uintptr(unsafe.Pointer(&handle)),
	)
	if ret != 0 {
		return err
	}

	go func() {
		<-haltCtx.Done()
		log.Println("power: suspend/resume notification halting")
	}()

	return nil
}
