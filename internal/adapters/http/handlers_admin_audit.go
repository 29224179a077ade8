package web

import (
	"net/http"
	"strconv"

	auditStore "makerspace/internal/adapters/storage/audit"
	auditDomain "makerspace/internal/domain/audit"
)

// handleAdminAudit lists recent audit events (GET /api/admin/audit?category=&actorId=&resourceId=&limit=)
// PRE: caller is admin
// POST: newest first, at most limit rows (default 100, max 1000)
func handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := auditStore.Filter{
		Category:   auditDomain.Category(q.Get("category")),
		ActorID:    q.Get("actorId"),
		ResourceID: q.Get("resourceId"),
	}

	limit := 100
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	events, err := stores.AuditStore.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	if events == nil {
		events = []auditDomain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
