package bus

import (
	"github.com/sat8bit/firstcontact/event"
)

// Busはイベントの送受信責務を持つ
type Bus interface {
	Broadcast(e *event.Event) error
	Subscribe() <-chan *event.Event
	Close()
}
