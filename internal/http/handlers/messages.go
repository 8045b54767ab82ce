package handlers

import (
	"net/http"

	"server/internal/middleware"
)

// Toast codes are stable identifiers the client switches on; the message is a
// user-actionable fallback in the request locale. Unrecognized codes fall back
// to the generic message, never raw error text.
var toastMessages = map[string]map[string]string{
	"wrong_password": {
		"en-GB": "That password is incorrect. Please try again.",
		"cy":    "Mae'r cyfrinair yn anghywir. Rhowch gynnig arall arni.",
	},
	"account_not_found": {
		"en-GB": "We couldn't find an account for that email address.",
		"cy":    "Nid oeddem yn gallu dod o hyd i gyfrif ar gyfer y cyfeiriad e-bost hwnnw.",
	},
	"email_exists": {
		"en-GB": "An account with that email already exists. Try signing in instead.",
		"cy":    "Mae cyfrif gyda'r e-bost hwnnw yn bodoli eisoes. Rhowch gynnig ar fewngofnodi.",
	},
	"weak_password": {
		"en-GB": "Passwords must be at least 8 characters long.",
		"cy":    "Rhaid i gyfrineiriau fod o leiaf 8 nod o hyd.",
	},
	"generic": {
		"en-GB": "Something went wrong. Please try again.",
		"cy":    "Aeth rhywbeth o'i le. Rhowch gynnig arall arni.",
	},
}

// toastError answers a normalized, localized auth failure.
func (a *App) toastError(w http.ResponseWriter, r *http.Request, status int, code string) {
	locale := middleware.LocaleFromContext(r.Context())
	messages, ok := toastMessages[code]
	if !ok {
		code, messages = "generic", toastMessages["generic"]
	}
	message, ok := messages[locale]
	if !ok {
		message = messages["en-GB"]
	}
	a.error(w, status, code, message)
}
