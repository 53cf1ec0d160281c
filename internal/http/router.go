package http

import (
	"net/http"
	"strconv"
	"strings"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Meta       *MetaHandler
	Cases      *CaseHandler
	Sessions   *SessionHandler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter assembles the API routing table. Path identifiers are
// parsed here and injected into the request context so handlers only
// deal with typed ids.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Auth != nil {
		mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Logout(w, r)
		})
	}

	if cfg.Meta != nil {
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Meta.Health(w, r)
		})
		mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Meta.APIInfo(w, r)
		})
	}

	if cfg.Cases != nil {
		mux.HandleFunc("/cases", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Cases.List(w, r)
			case http.MethodPost:
				cfg.Cases.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/cases/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/cases/")
			parts := splitPath(rest)

			switch {
			case len(parts) == 1:
				caseID, ok := parseID(parts[0])
				if !ok {
					http.NotFound(w, r)
					return
				}
				r = r.WithContext(ContextWithCaseID(r.Context(), caseID))
				switch r.Method {
				case http.MethodGet:
					cfg.Cases.Get(w, r)
				case http.MethodPut:
					cfg.Cases.Update(w, r)
				case http.MethodDelete:
					cfg.Cases.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case len(parts) == 2 && parts[1] == "parties":
				caseID, ok := parseID(parts[0])
				if !ok {
					http.NotFound(w, r)
					return
				}
				r = r.WithContext(ContextWithCaseID(r.Context(), caseID))
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Cases.AddParty(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Sessions != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sessions.Create(w, r)
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
			parts := splitPath(rest)

			switch {
			case len(parts) == 2 && parts[0] == "case":
				caseID, ok := parseID(parts[1])
				if !ok {
					http.NotFound(w, r)
					return
				}
				r = r.WithContext(ContextWithCaseID(r.Context(), caseID))
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Sessions.ListForCase(w, r)
			case len(parts) == 1:
				sessionID, ok := parseID(parts[0])
				if !ok {
					http.NotFound(w, r)
					return
				}
				r = r.WithContext(ContextWithSessionID(r.Context(), sessionID))
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Sessions.Update(w, r)
			case len(parts) == 2 && parts[1] == "participants":
				sessionID, ok := parseID(parts[0])
				if !ok {
					http.NotFound(w, r)
					return
				}
				r = r.WithContext(ContextWithSessionID(r.Context(), sessionID))
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Sessions.AddParticipant(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func splitPath(rest string) []string {
	trimmed := strings.Trim(rest, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
