package protocol

import (
	"encoding/json"
	"log"
)

// FilterFunc returns true if the message should be processed.
type FilterFunc func(hdr *RawHeader) bool

// MessageHandler receives decoded inbound messages.
type MessageHandler interface {
	HandleContainerDispatched(env *Envelope, p *ContainerDispatched)
	HandleContainerClosed(env *Envelope, p *ContainerClosed)
	HandleContainerDispatchAck(env *Envelope, p *ContainerDispatchAck)
}

// NoOpHandler implements MessageHandler with no-op methods.
// Embed it and override only the methods you need.
type NoOpHandler struct{}

func (NoOpHandler) HandleContainerDispatched(*Envelope, *ContainerDispatched)   {}
func (NoOpHandler) HandleContainerClosed(*Envelope, *ContainerClosed)           {}
func (NoOpHandler) HandleContainerDispatchAck(*Envelope, *ContainerDispatchAck) {}

var _ MessageHandler = NoOpHandler{}

// Ingestor performs two-phase decode and dispatches to a MessageHandler.
type Ingestor struct {
	handler MessageHandler
	filter  FilterFunc

	DebugLog func(format string, args ...any)
}

func NewIngestor(handler MessageHandler, filter FilterFunc) *Ingestor {
	return &Ingestor{handler: handler, filter: filter, DebugLog: log.Printf}
}

// HandleRaw is the entry point for raw message bytes from the messaging layer.
func (ing *Ingestor) HandleRaw(data []byte) {
	var hdr RawHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		ing.DebugLog("protocol: header decode error: %v", err)
		return
	}
	if IsExpiredHeader(&hdr) {
		ing.DebugLog("protocol: dropping expired message %s (type=%s)", hdr.ID, hdr.Type)
		return
	}
	if ing.filter != nil && !ing.filter(&hdr) {
		return
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ing.DebugLog("protocol: envelope decode error: %v", err)
		return
	}

	switch env.Type {
	case TypeContainerDispatched:
		decodeAndCall(ing, ing.handler.HandleContainerDispatched, &env)
	case TypeContainerClosed:
		decodeAndCall(ing, ing.handler.HandleContainerClosed, &env)
	case TypeContainerDispatchAck:
		decodeAndCall(ing, ing.handler.HandleContainerDispatchAck, &env)
	default:
		ing.DebugLog("protocol: unknown message type: %s", env.Type)
	}
}

// StationFilter accepts messages addressed to the station or broadcast.
func StationFilter(station string) FilterFunc {
	return func(hdr *RawHeader) bool {
		return hdr.Dst.Station == "" || hdr.Dst.Station == station
	}
}

func decodeAndCall[T any](ing *Ingestor, fn func(*Envelope, *T), env *Envelope) {
	var p T
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		ing.DebugLog("protocol: payload decode error for %s: %v", env.Type, err)
		return
	}
	fn(env, &p)
}
