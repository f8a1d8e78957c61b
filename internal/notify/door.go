package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/pkg/doorlock"
)

// DoorOpener is the part of the door controller client used on GRANT
type DoorOpener interface {
	Unlock(ctx context.Context) (doorlock.Result, error)
}

// DoorPublisher unlocks the door for every granted decision. The unlock runs
// in the background so the reader is answered first.
type DoorPublisher struct {
	door    DoorOpener
	timeout time.Duration
	logger  *logrus.Logger
}

// NewDoorPublisher creates a new DoorPublisher
func NewDoorPublisher(door DoorOpener, timeout time.Duration, logger *logrus.Logger) *DoorPublisher {
	return &DoorPublisher{door: door, timeout: timeout, logger: logger}
}

// Publish implements Publisher
func (p *DoorPublisher) Publish(ctx context.Context, msg Message) {
	if !msg.Authorized {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if _, err := p.door.Unlock(ctx); err != nil {
			p.logger.WithFields(logrus.Fields{
				"source": msg.Source,
				"error":  err.Error(),
			}).Error("Door unlock failed")
			return
		}
		p.logger.WithField("source", msg.Source).Info("Door unlocked")
	}()
}
