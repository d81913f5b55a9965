package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/maxplatform/signin-front/internal/flow"
	"github.com/maxplatform/signin-front/internal/log"
	"github.com/maxplatform/signin-front/internal/oauth"
	"github.com/maxplatform/signin-front/internal/transport"
)

// Handlers is the HTTP surface of the sign-in frontend
type Handlers struct {
	auth    *flow.Authenticator
	baseURL string
}

// NewHandlers creates the handler set
func NewHandlers(auth *flow.Authenticator, baseURL string) *Handlers {
	return &Handlers{auth: auth, baseURL: strings.TrimRight(baseURL, "/")}
}

// Register attaches all routes to the mux
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", h.login)
	mux.HandleFunc("GET /oauth/callback", h.callback)
	mux.HandleFunc("GET /logout", h.logout)
	mux.HandleFunc("GET /healthz", h.healthz)
}

// login starts a sign-in attempt. The transport decision is made here, once,
// and the attempt never switches mode afterwards.
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	opts := flow.Options{
		ReturnTarget:  h.safeReturnTarget(r.URL.Query().Get("return")),
		ForceRedirect: r.URL.Query().Get("mode") == "redirect",
	}

	switch h.auth.Mode(opts) {
	case transport.ModeRedirect:
		started, err := h.auth.StartRedirect(r.Context(), opts)
		if err != nil {
			log.LogErrorWithFields("server", "Failed to start redirect attempt", map[string]any{
				"error": err.Error(),
			})
			h.renderFailure(w, http.StatusInternalServerError)
			return
		}
		setAttemptCookie(w, started.AttemptID)
		http.Redirect(w, r, started.AuthorizationURL, http.StatusFound)

	case transport.ModeAuxiliary:
		result, err := h.auth.SignIn(r.Context(), opts)
		if err != nil {
			h.writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"return_target": result.ReturnTarget,
		})
	}
}

// callback runs wherever the provider redirects to. A state belonging to a
// live auxiliary attempt means this is the auxiliary context: relay the
// outcome and close. Otherwise this is the resumed main context of a
// redirect attempt.
func (h *Handlers) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if attemptID, ok := h.auxiliaryTarget(q); ok {
		delivered := h.auth.RelayCallback(attemptID, q)
		if !delivered {
			log.LogWarnWithFields("server", "Completion message was not delivered", map[string]any{
				"attempt": attemptID,
			})
		}
		renderClosePage(w)
		return
	}

	attemptID, err := getAttemptCookie(r)
	if err != nil {
		log.LogWarn("Callback without a pending attempt: %v", err)
		h.renderFailure(w, http.StatusBadRequest)
		return
	}
	clearAttemptCookie(w)

	result, err := h.auth.Resume(r.Context(), attemptID, q)
	if err != nil {
		h.logFlowError(err)
		status := http.StatusBadRequest
		if fe, ok := oauth.AsFlowError(err); ok {
			status = httpStatus(fe.Kind)
		}
		h.renderFailure(w, status)
		return
	}

	target := result.ReturnTarget
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout()
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// auxiliaryTarget routes a callback to a waiting auxiliary attempt. The
// state value normally identifies it, but providers may omit state entirely
// on error callbacks; a lone waiting attempt still receives the outcome so
// the initiator resolves with the provider's error instead of its deadline.
func (h *Handlers) auxiliaryTarget(q url.Values) (string, bool) {
	if attemptID, ok := h.auth.AuxiliaryAttempt(q.Get("state")); ok {
		return attemptID, true
	}
	if q.Get("error") != "" && q.Get("state") == "" {
		return h.auth.SoleAuxiliaryAttempt()
	}
	return "", false
}

// safeReturnTarget only honors relative paths or URLs on our own base URL,
// so the return parameter cannot become an open redirect.
func (h *Handlers) safeReturnTarget(target string) string {
	if target == "" {
		return ""
	}
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	base, err := url.Parse(h.baseURL)
	if err != nil {
		return ""
	}
	if u.Scheme == base.Scheme && u.Host == base.Host {
		return target
	}
	log.LogWarnWithFields("server", "Dropping untrusted return target", map[string]any{
		"target": target,
	})
	return ""
}

// writeFlowError responds to the initiating caller with the structured
// failure. The message is generic; the detail stays in the logs.
func (h *Handlers) writeFlowError(w http.ResponseWriter, err error) {
	h.logFlowError(err)

	fe, ok := oauth.AsFlowError(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"authenticated": false,
			"error":         "internal_error",
		})
		return
	}

	writeJSON(w, httpStatus(fe.Kind), map[string]any{
		"authenticated": false,
		"error":         string(fe.Kind),
	})
}

func (h *Handlers) logFlowError(err error) {
	if fe, ok := oauth.AsFlowError(err); ok {
		log.LogWarnWithFields("server", "Sign-in attempt failed", map[string]any{
			"kind":   string(fe.Kind),
			"detail": fe.Description,
		})
		return
	}
	log.LogErrorWithFields("server", "Sign-in attempt failed", map[string]any{
		"error": err.Error(),
	})
}

func httpStatus(kind oauth.FailureKind) int {
	switch kind {
	case oauth.KindUserCancelled, oauth.KindProviderError:
		return http.StatusUnauthorized
	case oauth.KindStateMismatch, oauth.KindMalformedCallback:
		return http.StatusBadRequest
	case oauth.KindDuplicateProcessing:
		return http.StatusConflict
	case oauth.KindTimeout:
		return http.StatusRequestTimeout
	case oauth.KindExchangeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.LogError("Failed to encode response: %v", err)
	}
}
