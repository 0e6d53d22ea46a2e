package www

import (
	"net/http"
	"strings"

	"github.com/JeanCaOLO/crossdoking/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin accepts a JSON body or a form post.
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			h.fail(w, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Username, req.Password = r.FormValue("username"), r.FormValue("password")
	}

	op, err := h.engine.DB().GetOperator(req.Username)
	if err != nil || !checkPassword(op.PasswordHash, req.Password) {
		h.jsonError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["username"] = op.Username
	session.Values["role"] = op.Role
	if err := session.Save(r, w); err != nil {
		h.logFn("auth: session save error: %v", err)
	}
	h.jsonOK(w, principal{Username: op.Username, Role: op.Role})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["username"] = ""
	session.Values["role"] = ""
	session.Options.MaxAge = -1
	session.Save(r, w)
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiMe(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.principal(r))
}

type createOperatorRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handlers) apiCreateOperator(w http.ResponseWriter, r *http.Request) {
	var req createOperatorRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		h.fail(w, domain.Errorf(domain.ErrValidation, "username and password are required"))
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleOperator
	}
	if !domain.ValidRole(req.Role) {
		h.fail(w, domain.Errorf(domain.ErrValidation, "unknown role %s", req.Role))
		return
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.engine.DB().CreateOperator(req.Username, hash, req.Role); err != nil {
		h.fail(w, uniqueConflict(err, "operator %s already exists", req.Username))
		return
	}
	h.jsonCreated(w, principal{Username: req.Username, Role: req.Role})
}
