package background

import (
	"context"
	"log"

	"github.com/avakist/PHN16Manager/util"
)

// Notifier drains user facing messages and writes them to the log.
// Desktop environments can swap this for a toast frontend; the manager
// itself has no display surface.
type Notifier struct {
	C chan util.Notification
}

func NewNotifier() *Notifier {
	return &Notifier{
		C: make(chan util.Notification, 10),
	}
}

func (n *Notifier) String() string {
	return "Notifier"
}

func (n *Notifier) Serve(haltCtx context.Context) error {
	log.Println("[notifier] starting notify loop")
	for {
		select {
		case msg := <-n.C:
			log.Printf("[notifier] %s\n", msg.Message)
		case <-haltCtx.Done():
			log.Println("[notifier] exiting notify loop")
			return nil
		}
	}
}
