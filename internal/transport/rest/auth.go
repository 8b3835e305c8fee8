package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ecommercehub/storefront/internal/identity"
	"github.com/ecommercehub/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// AuthHandler exposes the identity provider over HTTP.
type AuthHandler struct {
	provider identity.Provider
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(provider identity.Provider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the auth routes.
func (h *AuthHandler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signin", h.SignIn)
		r.Post("/signup", h.SignUp)
		r.Post("/signout", h.SignOut)
		r.Get("/session", h.Session)
	})
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=100"`
}

// SignIn authenticates a user and starts a session.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req signInRequest
	if !h.decodeAndValidate(w, r, mLogger, &req) {
		return
	}

	session, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			mLogger.WarnContext(r.Context(), "Sign-in rejected", "email", req.Email)
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error signing in", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	mLogger.InfoContext(r.Context(), "User signed in", "email", session.Email)
	web.RespondJSON(w, mLogger, http.StatusOK, session)
}

// SignUp registers a new user and starts a session.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req signUpRequest
	if !h.decodeAndValidate(w, r, mLogger, &req) {
		return
	}

	session, err := h.provider.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			mLogger.WarnContext(r.Context(), "Sign-up rejected, email taken", "email", req.Email)
			web.RespondError(w, mLogger, http.StatusConflict, "Email already registered")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error signing up", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to sign up")
		return
	}
	mLogger.InfoContext(r.Context(), "User signed up", "email", session.Email)
	web.RespondJSON(w, mLogger, http.StatusCreated, session)
}

// SignOut ends the session carried in the Authorization header. Missing
// tokens are a client error; unknown tokens are not, the session is gone
// either way.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	token := web.BearerToken(r)
	if token == "" {
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Missing bearer token")
		return
	}
	if err := h.provider.SignOut(r.Context(), token); err != nil {
		mLogger.ErrorContext(r.Context(), "Error signing out", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	mLogger.InfoContext(r.Context(), "User signed out")
	w.WriteHeader(http.StatusNoContent)
}

// Session verifies the bearer token and returns its session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	token := web.BearerToken(r)
	if token == "" {
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Missing bearer token")
		return
	}
	session, err := h.provider.Verify(r.Context(), token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error verifying session", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to verify session")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, session)
}

func (h *AuthHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		mLogger.WarnContext(r.Context(), "Invalid request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		if respondValidationErrors(w, mLogger, err) {
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
		return false
	}
	return true
}

func (h *AuthHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
