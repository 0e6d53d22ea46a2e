package www

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/distribution"
)

func (h *Handlers) apiListPallets(w http.ResponseWriter, r *http.Request) {
	pallets, err := h.engine.DB().ListPallets()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, pallets)
}

func (h *Handlers) apiGetPallet(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Pallet(r.Context(), chi.URLParam(r, "code"), h.getUsername(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, view)
}

func (h *Handlers) apiPalletAudit(w http.ResponseWriter, r *http.Request) {
	events, err := h.engine.DB().ListPalletAudit(chi.URLParam(r, "code"), queryInt(r, "limit", 100))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, events)
}

func (h *Handlers) apiScanPallet(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.ScanPallet(r.Context(), chi.URLParam(r, "code"), h.getUsername(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, view)
}

type scanSKURequest struct {
	Code string `json:"code"`
}

func (h *Handlers) apiScanSKU(w http.ResponseWriter, r *http.Request) {
	var req scanSKURequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sel, err := h.engine.ScanSKU(r.Context(), chi.URLParam(r, "code"), h.getUsername(r), req.Code)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, sel)
}

type selectRequest struct {
	Destination string `json:"destination"`
}

func (h *Handlers) apiSelectDestination(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sel, err := h.engine.SelectDestination(r.Context(), chi.URLParam(r, "code"), h.getUsername(r), req.Destination)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, sel)
}

func (h *Handlers) apiResetAuto(w http.ResponseWriter, r *http.Request) {
	sel, err := h.engine.ResetAuto(r.Context(), chi.URLParam(r, "code"), h.getUsername(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, sel)
}

type confirmRequest struct {
	Qty decimal.Decimal `json:"qty"`
}

func (h *Handlers) apiConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	out, err := h.engine.ConfirmActive(r.Context(), chi.URLParam(r, "code"), h.getUsername(r), req.Qty)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, out)
}

type surplusRequest struct {
	ManifestID int64                       `json:"manifest_id"`
	Entries    []distribution.SurplusEntry `json:"entries"`
}

func (h *Handlers) apiSurplus(w http.ResponseWriter, r *http.Request) {
	var req surplusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.engine.ReportSurplus(r.Context(), chi.URLParam(r, "code"), req.ManifestID, req.Entries, h.getUsername(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, res)
}

func (h *Handlers) apiUnlock(w http.ResponseWriter, r *http.Request) {
	h.palletAction(w, r, h.engine.Unlock)
}

func (h *Handlers) apiForceUnlock(w http.ResponseWriter, r *http.Request) {
	h.palletAction(w, r, h.engine.ForceUnlock)
}

func (h *Handlers) apiBlock(w http.ResponseWriter, r *http.Request) {
	h.palletAction(w, r, h.engine.Block)
}

func (h *Handlers) apiUnblock(w http.ResponseWriter, r *http.Request) {
	h.palletAction(w, r, h.engine.Unblock)
}

func (h *Handlers) palletAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, code, actor string) error) {
	code := chi.URLParam(r, "code")
	if err := fn(r.Context(), code, h.getUsername(r)); err != nil {
		h.fail(w, err)
		return
	}
	p, err := h.engine.DB().GetPallet(code)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, p)
}
