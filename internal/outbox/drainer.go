package outbox

import (
	"context"
	"time"

	"frontdesk/internal/models"
)

// Drainer ticks the queue's drain at a fixed interval. There is no extra
// backoff: a retained head is simply retried on the next tick.
type Drainer struct {
	queue    *Queue
	interval time.Duration
}

func NewDrainer(queue *Queue, interval time.Duration) *Drainer {
	if interval <= 0 {
		interval = models.DrainInterval
	}
	return &Drainer{queue: queue, interval: interval}
}

// Start runs the drain loop until ctx is cancelled.
func (d *Drainer) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.queue.Drain(ctx)
		}
	}
}
