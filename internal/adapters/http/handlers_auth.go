package web

import (
	"net/http"
	"time"

	"makerspace/internal/adapters/http/middleware"
	"makerspace/internal/application/orchestrators"
	"makerspace/internal/application/projections"
	domainAccount "makerspace/internal/domain/account"
	"makerspace/internal/domain/certification"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string                  `json:"token"`
	ExpiresAt time.Time               `json:"expiresAt"`
	User      projections.UserSummary `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

func createAccountDeps() orchestrators.CreateAccountDeps {
	return orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore, Now: timeNow, GenerateID: generateID}
}

// handleRegister creates a non-member account (POST /api/auth/register)
// POST: 201 with the new user; duplicate email is 400
func handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	acct, err := orchestrators.ExecuteRegister(r.Context(), orchestrators.RegisterInput{
		Name: req.Name, Email: req.Email, Password: req.Password,
	}, createAccountDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, projections.Summarize(acct))
}

// startSession issues both a cookie session and a bearer token for acct.
func startSession(w http.ResponseWriter, acct domainAccount.Account) (loginResponse, error) {
	sessionToken, err := sessions.Create(acct.ID)
	if err != nil {
		return loginResponse{}, err
	}
	bearer, exp, err := tokens.Issue(acct)
	if err != nil {
		return loginResponse{}, err
	}
	middleware.SetSessionCookie(w, sessionToken)
	return loginResponse{Token: bearer, ExpiresAt: exp, User: projections.Summarize(acct)}, nil
}

// handleAPILogin handles POST /api/auth/login
func handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	acct, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{Email: req.Email, Password: req.Password},
		orchestrators.LoginDeps{AccountStore: stores.AccountStore, Now: timeNow})
	if err != nil {
		respondError(w, err)
		return
	}
	resp, err := startSession(w, acct)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFormLogin handles the browser form POST /login; CSRF-protected.
func handleFormLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid form submission")
		return
	}
	acct, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}, orchestrators.LoginDeps{AccountStore: stores.AccountStore, Now: timeNow})
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := startSession(w, acct); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout handles POST /api/auth/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.SessionToken(r); ok {
		sessions.Delete(token)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	User           projections.UserSummary       `json:"user"`
	Certifications []certification.Certification `json:"certifications"`
}

// handleMe returns the caller with held certifications (GET /api/auth/me)
func handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principal(r)
	held, err := stores.CertificationStore.ListByUser(r.Context(), p.Account.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	if held == nil {
		held = []certification.Certification{}
	}
	writeJSON(w, http.StatusOK, meResponse{User: projections.Summarize(p.Account), Certifications: held})
}

// handleChangePassword handles POST /api/auth/password
// POST: other sessions of the caller are dropped on success
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	p, _ := principal(r)
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       p.Account.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, stores.AccountStore)
	if err != nil {
		respondError(w, err)
		return
	}
	sessions.DeleteAccount(p.Account.ID)
	if token, err := sessions.Create(p.Account.ID); err == nil {
		middleware.SetSessionCookie(w, token)
	}
	w.WriteHeader(http.StatusNoContent)
}
