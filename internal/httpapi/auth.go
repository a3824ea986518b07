package httpapi

import "net/http"

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authLogin issues a bearer token for a registered user. Only available
// when the server is wired with its own authsvc.Service; a deployment
// that verifies tokens from an external identity provider has no use for
// this endpoint and leaves Users nil.
func (h *handlers) authLogin(w http.ResponseWriter, r *http.Request) {
	if h.Users == nil {
		writeError(w, http.StatusNotImplemented, "login not available: auth is delegated to an external scheme")
		return
	}
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.Users.Login(creds.Username, creds.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (h *handlers) authRegister(w http.ResponseWriter, r *http.Request) {
	if h.Users == nil {
		writeError(w, http.StatusNotImplemented, "registration not available: auth is delegated to an external scheme")
		return
	}
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if err := h.Users.Register(creds.Username, creds.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}
