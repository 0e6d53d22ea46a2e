package engine

import (
	"time"

	"github.com/JeanCaOLO/crossdoking/distribution"
	"github.com/JeanCaOLO/crossdoking/store"
)

// distributionEmitter bridges the distribution service's emitter interface to the EventBus.
type distributionEmitter struct {
	bus *EventBus
}

var _ distribution.Emitter = (*distributionEmitter)(nil)

func (e *distributionEmitter) EmitPalletLocked(palletCode, actor string) {
	e.bus.Emit(Event{Type: EventPalletLocked, Payload: PalletEvent{PalletCode: palletCode, Actor: actor}})
}

func (e *distributionEmitter) EmitPalletReleased(palletCode, actor string, forced bool) {
	e.bus.Emit(Event{Type: EventPalletReleased, Payload: PalletEvent{PalletCode: palletCode, Actor: actor, Forced: forced}})
}

func (e *distributionEmitter) EmitPalletStatusChanged(palletCode, status, actor string) {
	e.bus.Emit(Event{Type: EventPalletStatusChanged, Payload: PalletEvent{PalletCode: palletCode, Actor: actor, Status: status}})
}

func (e *distributionEmitter) EmitQuantityConfirmed(r *distribution.ConfirmResult, actor string) {
	e.bus.Emit(Event{Type: EventQuantityConfirmed, Payload: QuantityConfirmedEvent{
		PalletCode:      r.Line.PalletCode,
		SKU:             r.Line.SKU,
		Destination:     r.Line.Destination,
		Qty:             r.Qty,
		ContainerCode:   r.ContainerCode,
		LineStatus:      r.Line.Status,
		PalletAvailable: r.PalletAvailable,
		Actor:           actor,
	}})
}

func (e *distributionEmitter) EmitLineReversed(r *distribution.ReverseResult, actor string) {
	e.bus.Emit(Event{Type: EventLineReversed, Payload: LineReversedEvent{
		ContainerLineID: r.Removed.ID,
		ContainerCode:   r.Container.Code,
		PalletCode:      r.Removed.PalletCode,
		SKU:             r.Removed.SKU,
		Qty:             r.Removed.Qty,
		Actor:           actor,
	}})
}

func (e *distributionEmitter) EmitContainerClosed(c *store.Container, lineCount int, actor string) {
	e.bus.Emit(Event{Type: EventContainerClosed, Payload: containerEvent(c, lineCount, actor)})
}

func (e *distributionEmitter) EmitContainerDispatched(c *store.Container) {
	e.bus.Emit(Event{Type: EventContainerDispatched, Payload: containerEvent(c, 0, "")})
}

func (e *distributionEmitter) EmitSurplusReported(r *distribution.SurplusResult, actor string) {
	e.bus.Emit(Event{Type: EventSurplusReported, Payload: SurplusReportedEvent{
		PalletCode:    r.PalletCode,
		ContainerCode: r.Code,
		LineCount:     r.LineCount,
		Skipped:       len(r.Skipped),
		Actor:         actor,
	}})
}

func containerEvent(c *store.Container, lineCount int, actor string) ContainerEvent {
	return ContainerEvent{
		ContainerID: c.ID,
		Code:        c.Code,
		Destination: c.Destination,
		Type:        c.Type,
		Status:      c.Status,
		LineCount:   lineCount,
		Actor:       actor,
		At:          time.Now(),
	}
}
