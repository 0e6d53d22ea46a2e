package messaging

import (
	"fmt"

	"github.com/JeanCaOLO/crossdoking/distribution"
	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/protocol"
	"github.com/JeanCaOLO/crossdoking/store"
)

// Announcer queues container lifecycle messages in the outbox from inside the
// transaction that changed the container.
type Announcer struct {
	stationID string
	topic     string
}

func NewAnnouncer(stationID, containersTopic string) *Announcer {
	return &Announcer{stationID: stationID, topic: containersTopic}
}

var _ distribution.Announcer = (*Announcer)(nil)

func (a *Announcer) src() protocol.Address {
	return protocol.Address{Role: protocol.RoleStation, Station: a.stationID}
}

func (a *Announcer) AnnounceContainerClosed(tx *store.Tx, c *store.Container, lineCount int) error {
	lines, err := tx.ListContainerLines(c.ID)
	if err != nil {
		return fmt.Errorf("announce close %s: %w", c.Code, err)
	}
	p := &protocol.ContainerClosed{
		Code:        c.Code,
		ManifestID:  c.ManifestID,
		Destination: c.Destination,
		Type:        c.Type,
		LineCount:   lineCount,
		ClosedBy:    c.ClosedBy,
	}
	if c.ClosedAt != nil {
		p.ClosedAt = *c.ClosedAt
	}
	for _, l := range lines {
		p.Lines = append(p.Lines, protocol.ContainerLine{PalletCode: l.PalletCode, SKU: l.SKU, Qty: l.Qty})
	}
	return a.enqueue(tx, protocol.TypeContainerClosed, "", p)
}

func (a *Announcer) AnnounceContainerDispatched(tx *store.Tx, c *store.Container) error {
	return a.enqueue(tx, protocol.TypeContainerDispatchAck, "",
		&protocol.ContainerDispatchAck{Code: c.Code, Status: domain.ContainerDispatched})
}

func (a *Announcer) enqueue(tx *store.Tx, msgType, corID string, payload any) error {
	env, err := protocol.NewReply(msgType, a.src(), protocol.Address{Role: protocol.RoleWMS}, corID, payload)
	if err != nil {
		return fmt.Errorf("build %s: %w", msgType, err)
	}
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	return tx.EnqueueOutbox(a.topic, data, msgType)
}
