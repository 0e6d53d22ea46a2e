package www

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/ingest"
	"github.com/JeanCaOLO/crossdoking/store"
)

func (h *Handlers) apiListManifests(w http.ResponseWriter, r *http.Request) {
	manifests, err := h.engine.DB().ListManifests(queryInt(r, "limit", 50))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, manifests)
}

func (h *Handlers) apiGetManifest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	progress, err := h.engine.DB().GetManifestProgress(id)
	if err != nil {
		h.fail(w, noRows(err, "manifest %d", id))
		return
	}
	h.jsonOK(w, progress)
}

func (h *Handlers) apiManifestDemand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	lines, err := h.engine.DB().ListManifestDemand(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonOK(w, lines)
}

// apiImportManifest accepts a multipart upload with the workbook in "file".
func (h *Handlers) apiImportManifest(w http.ResponseWriter, r *http.Request) {
	maxMB := h.engine.AppConfig().Web.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 10
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxMB)<<20)
	if err := r.ParseMultipartForm(int64(maxMB) << 20); err != nil {
		h.fail(w, domain.Errorf(domain.ErrValidation, "invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, domain.Errorf(domain.ErrValidation, "missing file"))
		return
	}
	defer file.Close()

	res, err := h.engine.ImportManifest(r.Context(), header.Filename, file, h.getUsername(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.jsonCreated(w, res)
}

func (h *Handlers) apiTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="manifiesto.xlsx"`)
	if err := ingest.Template(w); err != nil {
		h.logFn("www: write template: %v", err)
	}
}

func noRows(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Errorf(domain.ErrNotFound, format, args...)
	}
	return err
}

func uniqueConflict(err error, format string, args ...any) error {
	if store.IsUniqueViolation(err) {
		return domain.Errorf(domain.ErrConflict, format, args...)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
