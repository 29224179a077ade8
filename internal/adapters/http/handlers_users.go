package web

import (
	"net/http"

	"makerspace/internal/application/listutil"
	"makerspace/internal/application/orchestrators"
	"makerspace/internal/application/projections"
	domainAccount "makerspace/internal/domain/account"
)

func accountDeps() orchestrators.AccountDeps {
	return orchestrators.AccountDeps{Accounts: stores.AccountStore, Audit: stores.AuditStore, Now: timeNow}
}

// handleListUsers handles GET /api/users?q=&userType=&sort=&page=&per_page=
func handleListUsers(w http.ResponseWriter, r *http.Request) {
	params := listutil.ParseListParams(r.URL.Query(), projections.UserListSortColumns, projections.UserListFilterKeys)
	result, err := projections.QueryUserList(r.Context(), params, stores.AccountStore)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListInstructors handles GET /api/users/instructors
func handleListInstructors(w http.ResponseWriter, r *http.Request) {
	list, err := projections.QueryInstructors(r.Context(), stores.AccountStore)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type updateUserRequest struct {
	UserType     *string `json:"userType" validate:"omitempty,oneof=admin member non-member steward cave-pro"`
	IsInstructor *bool   `json:"isInstructor"`
}

// handleUpdateUser handles PATCH /api/users/{id}; admin only, audited.
func handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.UserType == nil && req.IsInstructor == nil {
		writeJSONError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	acct, err := orchestrators.ExecuteUpdateUser(r.Context(), orchestrators.UpdateUserInput{
		Actor:        actorFrom(r),
		UserID:       r.PathValue("id"),
		UserType:     req.UserType,
		IsInstructor: req.IsInstructor,
	}, accountDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projections.Summarize(acct))
}

// handleDeleteUser handles DELETE /api/users/{id}
// POST: the user's sessions are dropped
func handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := orchestrators.ExecuteDeleteUser(r.Context(), actorFrom(r), userID, accountDeps()); err != nil {
		respondError(w, err)
		return
	}
	sessions.DeleteAccount(userID)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetProfile handles GET /api/users/{id}/profile (self or admin)
func handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !canView(r, userID) {
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	acct, err := stores.AccountStore.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projections.Summarize(acct))
}

type updateProfileRequest struct {
	Name                  string `json:"name" validate:"max=120"`
	Address               string `json:"address" validate:"max=300"`
	Phone                 string `json:"phone" validate:"max=40"`
	BirthDate             string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	EmergencyContactName  string `json:"emergencyContactName" validate:"max=120"`
	EmergencyContactPhone string `json:"emergencyContactPhone" validate:"max=40"`
}

// handleUpdateProfile handles PUT /api/users/{id}/profile (self or admin)
func handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	acct, err := orchestrators.ExecuteUpdateProfile(r.Context(), orchestrators.UpdateProfileInput{
		Actor:  actorFrom(r),
		UserID: r.PathValue("id"),
		Name:   req.Name,
		Profile: domainAccount.Profile{
			Address:               req.Address,
			Phone:                 req.Phone,
			BirthDate:             req.BirthDate,
			EmergencyContactName:  req.EmergencyContactName,
			EmergencyContactPhone: req.EmergencyContactPhone,
		},
	}, accountDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projections.Summarize(acct))
}
