package messaging

import (
	"log"
	"time"

	"github.com/JeanCaOLO/crossdoking/store"
)

const outboxBatch = 50

// OutboxDrainer periodically sends pending outbox messages. A message that
// keeps failing is left in place once it reaches maxRetries.
type OutboxDrainer struct {
	db         *store.DB
	pub        Publisher
	interval   time.Duration
	maxRetries int
	logFn      LogFunc
	stopChan   chan struct{}
}

func NewOutboxDrainer(db *store.DB, pub Publisher, interval time.Duration, maxRetries int, logFn LogFunc) *OutboxDrainer {
	if logFn == nil {
		logFn = log.Printf
	}
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &OutboxDrainer{
		db:         db,
		pub:        pub,
		interval:   interval,
		maxRetries: maxRetries,
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
}

func (d *OutboxDrainer) Start() {
	go d.run()
}

func (d *OutboxDrainer) Stop() {
	select {
	case d.stopChan <- struct{}{}:
	default:
	}
}

func (d *OutboxDrainer) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Drain()
		}
	}
}

// Drain publishes one batch and returns how many messages were sent.
func (d *OutboxDrainer) Drain() int {
	msgs, err := d.db.ListPendingOutbox(outboxBatch, d.maxRetries)
	if err != nil {
		d.logFn("outbox: list pending: %v", err)
		return 0
	}
	sent := 0
	for _, msg := range msgs {
		if err := d.pub.Publish(msg.Topic, msg.Payload); err != nil {
			d.logFn("outbox: publish %s to %s failed (attempt %d): %v", msg.MsgType, msg.Topic, msg.Retries+1, err)
			if err := d.db.IncrementOutboxRetries(msg.ID); err != nil {
				d.logFn("outbox: bump retries %d: %v", msg.ID, err)
			}
			if msg.Retries+1 >= d.maxRetries {
				d.logFn("outbox: message %d (%s) dead-lettered after %d attempts", msg.ID, msg.MsgType, d.maxRetries)
			}
			continue
		}
		if err := d.db.AckOutbox(msg.ID); err != nil {
			d.logFn("outbox: ack %d: %v", msg.ID, err)
			continue
		}
		sent++
	}
	return sent
}
