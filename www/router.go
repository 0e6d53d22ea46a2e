package www

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"github.com/JeanCaOLO/crossdoking/engine"
)

type LogFunc func(format string, args ...any)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
	logFn    LogFunc
}

func NewRouter(eng *engine.Engine, logFn LogFunc) (http.Handler, func()) {
	if logFn == nil {
		logFn = log.Printf
	}
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
		logFn:    logFn,
	}
	ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/logout", h.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/template.xlsx", h.apiTemplate)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/me", h.apiMe)
			r.Get("/events", hub.SSEHandler)

			// read
			r.Get("/pallets", h.apiListPallets)
			r.Get("/pallets/{code}", h.apiGetPallet)
			r.Get("/pallets/{code}/audit", h.apiPalletAudit)
			r.Get("/containers", h.apiListContainers)
			r.Get("/containers/{id}/lines", h.apiContainerLines)
			r.Get("/manifests", h.apiListManifests)
			r.Get("/manifests/{id}", h.apiGetManifest)
			r.Get("/manifests/{id}/demand", h.apiManifestDemand)
			r.Get("/audit", h.apiListAudit)

			// operator flow
			r.Group(func(r chi.Router) {
				r.Use(h.requireWriter)
				r.Post("/pallets/{code}/scan", h.apiScanPallet)
				r.Post("/pallets/{code}/sku", h.apiScanSKU)
				r.Post("/pallets/{code}/select", h.apiSelectDestination)
				r.Post("/pallets/{code}/auto", h.apiResetAuto)
				r.Post("/pallets/{code}/confirm", h.apiConfirm)
				r.Post("/pallets/{code}/surplus", h.apiSurplus)
				r.Post("/pallets/{code}/unlock", h.apiUnlock)
				r.Post("/containers/{id}/close", h.apiCloseContainer)
				r.Post("/container-lines/{id}/reverse", h.apiReverse)
			})

			// supervision
			r.Group(func(r chi.Router) {
				r.Use(h.requireSupervisor)
				r.Post("/pallets/{code}/force-unlock", h.apiForceUnlock)
				r.Post("/pallets/{code}/block", h.apiBlock)
				r.Post("/pallets/{code}/unblock", h.apiUnblock)
				r.Post("/containers/{code}/dispatch", h.apiDispatch)
				r.Post("/manifests", h.apiImportManifest)
				r.Post("/operators", h.apiCreateOperator)
			})
		})
	})

	return r, hub.Stop
}
