package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/adboard/adboard/internal/domain"
	"github.com/adboard/adboard/internal/service"
	"github.com/adboard/adboard/internal/view"
)

// AuthHandler handles registration, login, and logout.
type AuthHandler struct {
	auth         *service.AuthService
	pages        *view.Renderer
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, pages *view.Renderer, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, pages: pages, cookieSecure: cookieSecure}
}

// HandleLoginPage renders the login form.
// GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, view.AuthData{PageTitle: "Log In"})
}

// HandleLogin processes a login form submission and establishes a session.
// POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	remember := r.PostFormValue("remember") != ""

	token, err := h.auth.Login(r.Context(), email, password, remember)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.renderLogin(w, r, http.StatusUnauthorized, view.AuthData{
				PageTitle: "Log In",
				Message:   "Invalid email or password.",
				Email:     email,
			})
			return
		}
		slog.Error("login user", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	maxAge := 0 // session cookie; the token itself expires after SessionTTL
	if remember {
		maxAge = int(service.RememberTTL.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRegisterPage renders the registration form.
// GET /register
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, http.StatusOK, view.AuthData{PageTitle: "Register"})
}

// HandleRegister processes a registration form submission.
// POST /register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	name := r.PostFormValue("name")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("password_confirmation")

	_, err := h.auth.Register(r.Context(), name, email, password, confirm)
	if err != nil {
		data := view.AuthData{PageTitle: "Register", Name: name, Email: email}
		switch {
		case errors.Is(err, domain.ErrPasswordMismatch):
			data.Message = "Passwords do not match."
		case errors.Is(err, domain.ErrDuplicateEmail):
			data.Message = "An account with that email already exists."
		case errors.Is(err, domain.ErrInvalidInput):
			data.Message = "Name, email, and password are required."
		default:
			slog.Error("register user", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		h.renderRegister(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleLogout clears the session cookie. Idempotent.
// GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data view.AuthData) {
	w.WriteHeader(status)
	if err := h.pages.LoginPage(w, data); err != nil {
		slog.Error("render login page", "error", err)
	}
}

func (h *AuthHandler) renderRegister(w http.ResponseWriter, r *http.Request, status int, data view.AuthData) {
	w.WriteHeader(status)
	if err := h.pages.RegisterPage(w, data); err != nil {
		slog.Error("render register page", "error", err)
	}
}
