package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/service"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

// @Summary      Sign up
// @Description  Create a dashboard account; the first account becomes admin
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body signupRequest true "Signup input"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /signup [post]
func handleSignup(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		user, err := authSvc.Register(r.Context(), service.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email already in use"})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"message": "user created", "role": user.Role})
	}
}

// @Summary      Login
// @Description  Login with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body loginRequest true "Login input"
// @Success      200  {object}  tokenResponse
// @Failure      401  {object}  map[string]string
// @Router       /login [post]
func handleLogin(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		resp, err := authSvc.Login(r.Context(), service.LoginInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: resp.AccessToken,
			TokenType:   resp.TokenType,
			User:        resp.User,
		})
	}
}
