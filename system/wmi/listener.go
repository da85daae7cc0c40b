package wmi

import (
	"context"
	"fmt"

	wmiquery "github.com/bi-zone/wmi"
)

type firmwareEvent struct {
	Active       bool
	EventData    []uint8
	InstanceName string
	TIME_CREATED uint64
}

// NewEventListener subscribes to the firmware's notification queue and
// forwards the raw 8-byte event buffers to eventCh
func NewEventListener(haltCtx context.Context, eventCh chan []byte) error {
	ch := make(chan firmwareEvent)
	q, err := wmiquery.NewNotificationQuery(ch, `SELECT * FROM AcerWmiEvent`)
	if err != nil {
		return fmt.Errorf("failed to create NotificationQuery: %s", err)
	}
	q.SetConnectServerArgs(nil, `root\wmi`)

	go func() {
		q.StartNotifications()
	}()

	go func() {
		for {
			select {
			case ev := <-ch:
				eventCh <- ev.EventData
			case <-haltCtx.Done():
				q.Stop()
				return
			}
		}
	}()

	return nil
}
