package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

const flashCookie = "filmhive_flash"

// flash is a one-shot notice carried across a redirect.
type flash struct {
	Kind    string // "ok" or "error"
	Message string
}

func setFlash(w http.ResponseWriter, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    kind + ":" + url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads the pending notice and clears it.
func takeFlash(w http.ResponseWriter, r *http.Request) *flash {
	ck, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	kind, raw, ok := strings.Cut(ck.Value, ":")
	if !ok {
		return nil
	}
	msg, err := url.QueryUnescape(raw)
	if err != nil || msg == "" {
		return nil
	}
	if kind != "ok" {
		kind = "error"
	}
	return &flash{Kind: kind, Message: msg}
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, to, kind, msg string) {
	setFlash(w, kind, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
