package www

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JeanCaOLO/crossdoking/domain"
)

func (h *Handlers) apiListContainers(w http.ResponseWriter, r *http.Request) {
	manifestID, err := strconv.ParseInt(r.URL.Query().Get("manifest_id"), 10, 64)
	if err != nil {
		h.fail(w, domain.Errorf(domain.ErrValidation, "manifest_id is required"))
		return
	}
	containers, err := h.engine.DB().ListContainers(manifestID, r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, containers)
}

func (h *Handlers) apiContainerLines(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	lines, err := h.engine.DB().ListContainerLines(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, lines)
}

func (h *Handlers) apiCloseContainer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.engine.CloseContainer(r.Context(), id, h.getUsername(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, res)
}

func (h *Handlers) apiReverse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.engine.Reverse(r.Context(), id, h.getUsername(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, res)
}

// apiDispatch marks a container dispatched by hand, for sites without a WMS feed.
func (h *Handlers) apiDispatch(w http.ResponseWriter, r *http.Request) {
	c, err := h.engine.MarkDispatched(r.Context(), chi.URLParam(r, "code"), h.getUsername(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, c)
}

func (h *Handlers) apiListAudit(w http.ResponseWriter, r *http.Request) {
	events, err := h.engine.DB().ListAudit(queryInt(r, "limit", 200))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, events)
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	messaging := false
	if mc := h.engine.MsgClient(); mc != nil {
		messaging = mc.IsConnected()
	}
	dead, err := h.engine.DB().CountDeadOutbox(h.engine.AppConfig().Messaging.OutboxMaxRetries)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, map[string]any{
		"status":      "ok",
		"messaging":   messaging,
		"dead_outbox": dead,
		"sse_clients": h.eventHub.ClientCount(),
	})
}
