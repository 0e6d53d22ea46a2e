package www

import (
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

const sessionName = "crossdock-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "crossdock-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false // warehouse LAN, plain HTTP
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type principal struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *Handlers) principal(r *http.Request) *principal {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	username, _ := session.Values["username"].(string)
	role, _ := session.Values["role"].(string)
	if username == "" {
		return nil
	}
	return &principal{Username: username, Role: role}
}

func (h *Handlers) getUsername(r *http.Request) string {
	if p := h.principal(r); p != nil {
		return p.Username
	}
	return ""
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.principal(r) == nil {
			h.jsonError(w, "login required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireWriter rejects auditors, who have read-only access.
func (h *Handlers) requireWriter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := h.principal(r); p == nil || p.Role == domain.RoleAuditor {
			h.jsonError(w, "read-only account", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) requireSupervisor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := h.principal(r); p == nil || !domain.CanSupervise(p.Role) {
			h.jsonError(w, "supervisor role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ensureDefaultAdmin(db *store.DB) {
	exists, err := db.OperatorExists()
	if err != nil || exists {
		return
	}
	hash, err := HashPassword("admin")
	if err != nil {
		return
	}
	if err := db.CreateOperator("admin", hash, domain.RoleAdmin); err != nil {
		log.Printf("auth: create default admin: %v", err)
	}
}
