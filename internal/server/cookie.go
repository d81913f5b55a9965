package server

import (
	"net/http"
	"time"

	"github.com/maxplatform/signin-front/internal/envutil"
)

// attemptCookieName ties a redirect-mode attempt to the browser that started
// it, so the callback can find its pending record.
const attemptCookieName = "signin_attempt"

// attemptCookieMaxAge matches the attempt deadline
const attemptCookieMaxAge = 10 * time.Minute

func setAttemptCookie(w http.ResponseWriter, attemptID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     attemptCookieName,
		Value:    attemptID,
		Path:     "/oauth",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(attemptCookieMaxAge.Seconds()),
	})
}

func getAttemptCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(attemptCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

func clearAttemptCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   attemptCookieName,
		Value:  "",
		Path:   "/oauth",
		MaxAge: -1,
	})
}
