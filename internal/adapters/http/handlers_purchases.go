package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"makerspace/internal/application/orchestrators"
	"makerspace/internal/domain/purchase"
)

func purchaseDeps() orchestrators.PurchaseDeps {
	return orchestrators.PurchaseDeps{
		Purchases:  stores.PurchaseStore,
		Accounts:   stores.AccountStore,
		Audit:      stores.AuditStore,
		Now:        timeNow,
		GenerateID: generateID,
	}
}

// handleListPurchases handles GET /api/users/{id}/purchases (self or admin)
func handleListPurchases(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !canView(r, userID) {
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	list, err := stores.PurchaseStore.ListByUser(r.Context(), userID)
	if err != nil {
		internalError(w, err)
		return
	}
	if list == nil {
		list = []purchase.Purchase{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createPurchaseRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" validate:"omitempty,oneof=invoice class booking membership other"`
	DueDate     string          `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// handleCreatePurchase handles POST /api/users/{id}/purchases
// POST: 201 with an unpaid purchase; non-positive amounts are 400
func handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	p, err := orchestrators.ExecuteCreatePurchase(r.Context(), orchestrators.CreatePurchaseInput{
		Actor:       actorFrom(r),
		UserID:      r.PathValue("id"),
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		DueDate:     req.DueDate,
	}, purchaseDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type setPurchaseStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid unpaid"`
}

// handleSetPurchaseStatus handles PATCH /api/users/{id}/purchases/{purchaseId}
func handleSetPurchaseStatus(w http.ResponseWriter, r *http.Request) {
	var req setPurchaseStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	p, err := orchestrators.ExecuteSetPurchaseStatus(r.Context(), orchestrators.SetPurchaseStatusInput{
		Actor:      actorFrom(r),
		UserID:     r.PathValue("id"),
		PurchaseID: r.PathValue("purchaseId"),
		Status:     req.Status,
	}, purchaseDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePurchase handles DELETE /api/users/{id}/purchases/{purchaseId}
func handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteDeletePurchase(r.Context(), actorFrom(r), r.PathValue("id"), r.PathValue("purchaseId"), purchaseDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
