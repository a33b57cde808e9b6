package attendance

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Kind distinguishes attendance transitions.
type Kind string

const (
	KindIn  Kind = "IN"
	KindOut Kind = "OUT"
)

// Event describes a completed IN or OUT transition.
type Event struct {
	Kind Kind      `json:"kind"`
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// Notifier receives attendance events for user-facing rendering. A
// notifier must not block; failures never affect the transition that
// produced the event.
type Notifier interface {
	Notify(event Event)
}

// MultiNotifier fans an event out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(event Event) {
	for _, n := range m {
		n.Notify(event)
	}
}

// ConsoleNotifier prints transitions to stdout with an audible terminal
// bell, the CLI equivalent of the attendance kiosk beep.
type ConsoleNotifier struct {
	Bell bool
}

func (c ConsoleNotifier) Notify(event Event) {
	marker := ""
	if c.Bell {
		marker = "\a"
	}
	fmt.Printf("[✓] Marked %s for %s at %s%s\n", event.Kind, event.Name, event.At.Format("15:04:05"), marker)
}

// LogNotifier writes transitions to a structured logger.
type LogNotifier struct {
	Log *logrus.Logger
}

func (l LogNotifier) Notify(event Event) {
	l.Log.WithFields(logrus.Fields{
		"kind": event.Kind,
		"name": event.Name,
		"at":   event.At.Format("15:04:05"),
	}).Info("attendance transition")
}
