package messaging

import (
	"context"
	"errors"
	"log"

	"github.com/JeanCaOLO/crossdoking/distribution"
	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/protocol"
	"github.com/JeanCaOLO/crossdoking/store"
)

// DispatchHandler applies container.dispatched messages from the WMS. A
// successful dispatch is acknowledged by the Announcer inside the dispatch
// transaction; duplicates and failures are acknowledged here.
type DispatchHandler struct {
	protocol.NoOpHandler

	svc       *distribution.Service
	db        *store.DB
	stationID string
	topic     string
	logFn     LogFunc
}

func NewDispatchHandler(svc *distribution.Service, stationID, containersTopic string, logFn LogFunc) *DispatchHandler {
	if logFn == nil {
		logFn = log.Printf
	}
	return &DispatchHandler{
		svc:       svc,
		db:        svc.DB(),
		stationID: stationID,
		topic:     containersTopic,
		logFn:     logFn,
	}
}

// Start subscribes the handler to the dispatch topic.
func (h *DispatchHandler) Start(sub Subscriber, dispatchTopic string) error {
	ing := protocol.NewIngestor(h, protocol.StationFilter(h.stationID))
	ing.DebugLog = h.logFn
	return sub.Subscribe(dispatchTopic, ing.HandleRaw)
}

func (h *DispatchHandler) HandleContainerDispatched(env *protocol.Envelope, p *protocol.ContainerDispatched) {
	actor := p.DispatchedBy
	if actor == "" {
		actor = protocol.RoleWMS
	}
	_, err := h.svc.MarkDispatched(context.Background(), p.Code, actor)
	if err == nil {
		h.logFn("dispatch: container %s dispatched by %s", p.Code, actor)
		return
	}

	ack := &protocol.ContainerDispatchAck{Code: p.Code}
	if errors.Is(err, domain.ErrWrongState) {
		if c, cerr := h.db.GetContainerByCode(p.Code); cerr == nil {
			ack.Status = c.Status
			ack.Duplicate = c.Status == domain.ContainerDispatched
		}
	}
	if !ack.Duplicate {
		ack.Error = err.Error()
		h.logFn("dispatch: container %s: %v", p.Code, err)
	}
	h.reply(env, ack)
}

func (h *DispatchHandler) reply(env *protocol.Envelope, ack *protocol.ContainerDispatchAck) {
	reply, err := protocol.NewReply(protocol.TypeContainerDispatchAck,
		protocol.Address{Role: protocol.RoleStation, Station: h.stationID},
		env.Src, env.ID, ack)
	if err != nil {
		h.logFn("dispatch: build ack: %v", err)
		return
	}
	data, err := reply.Encode()
	if err != nil {
		h.logFn("dispatch: encode ack: %v", err)
		return
	}
	if err := h.db.EnqueueOutbox(h.topic, data, protocol.TypeContainerDispatchAck); err != nil {
		h.logFn("dispatch: enqueue ack: %v", err)
	}
}
