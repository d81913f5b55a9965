package server

import (
	"html/template"
	"net/http"

	"github.com/maxplatform/signin-front/internal/log"
)

// closePage is rendered in the auxiliary context after its outcome has been
// relayed. The context closes itself after a short grace period.
var closePage = template.Must(template.New("close").Parse(`<!DOCTYPE html>
<html>
<head><title>Sign-in complete</title></head>
<body>
<p>Sign-in complete. You can close this window.</p>
<script>setTimeout(function() { window.close(); }, 1500);</script>
</body>
</html>`))

// failurePage shows a generic, retryable failure. Detail never reaches the
// user; it is logged where the failure occurred.
var failurePage = template.Must(template.New("failure").Parse(`<!DOCTYPE html>
<html>
<head><title>Sign-in failed</title></head>
<body>
<p>Sign-in did not complete. Please try again.</p>
<p><a href="/login?mode=redirect">Retry sign-in</a></p>
</body>
</html>`))

func renderClosePage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := closePage.Execute(w, nil); err != nil {
		log.LogError("Failed to render close page: %v", err)
	}
}

func (h *Handlers) renderFailure(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := failurePage.Execute(w, nil); err != nil {
		log.LogError("Failed to render failure page: %v", err)
	}
}
