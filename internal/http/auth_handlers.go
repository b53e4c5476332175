package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/osamahabib5/chatapp-espressolab-osama/internal/store"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/auth"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/mail"
)

type AuthAPI struct {
	DB     *store.Postgres
	JWT    *auth.JWT
	Tokens *store.ResetTokens
	Mail   *mail.Mailer
	AppURL string
	Log    *slog.Logger
}

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
type tokenResp struct {
	Token string      `json:"token"`
	User  authUserDTO `json:"user"`
}
type authUserDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

func userDTO(u store.User) authUserDTO {
	return authUserDTO{ID: u.ID, Email: u.Email, Name: u.Name, PhotoURL: u.PhotoURL}
}

// Register handles user signup and returns a JWT
func (a *AuthAPI) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	// Basic validation
	if req.Email == "" || req.Name == "" || req.Password == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 || !strings.Contains(req.Email, "@") {
		http.Error(w, "invalid email or weak password", http.StatusBadRequest)
		return
	}

	u, err := a.DB.CreateUser(r.Context(), req.Email, req.Name, req.PhotoURL, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			http.Error(w, "email already in use", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	// Issue token for 24hrs
	tok, _ := a.JWT.Sign(u.ID, 24*time.Hour)
	writeJSON(w, tokenResp{Token: tok, User: userDTO(u)})
}

// Login verifies credentials and returns a JWT
func (a *AuthAPI) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.VerifyUser(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	// Issue token (24h)
	tok, _ := a.JWT.Sign(u.ID, 24*time.Hour)
	writeJSON(w, tokenResp{Token: tok, User: userDTO(u)})
}

// ForgotPassword issues a reset token and mails the link. The response
// is the same whether or not the email exists, so the endpoint can't be
// used to probe for accounts.
func (a *AuthAPI) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u, _, err := a.DB.GetUserByEmail(r.Context(), req.Email)
	if err == nil {
		tok, err := a.Tokens.Issue(r.Context(), u.ID)
		if err != nil {
			a.Log.Error("auth.reset.issue", "err", err)
		} else {
			link := a.AppURL + "/reset-password?token=" + tok
			if err := a.Mail.SendPasswordReset(u.Email, link); err != nil {
				a.Log.Error("auth.reset.mail", "err", err)
			}
		}
	}

	writeJSON(w, map[string]string{"message": "if the account exists, a reset email has been sent"})
}

// ResetPassword consumes a reset token and stores the new password.
func (a *AuthAPI) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "weak password", http.StatusBadRequest)
		return
	}

	uid, err := a.Tokens.Consume(r.Context(), req.Token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusBadRequest)
		return
	}
	if err := a.DB.UpdatePassword(r.Context(), uid, req.Password); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "password updated"})
}

// Me returns the authenticated user's ID
func (a *AuthAPI) Me(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if uid == "anon" || uid == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"userId": uid})
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
