package web

import (
	"net/http"

	"makerspace/internal/application/orchestrators"
	"makerspace/internal/application/projections"
	"makerspace/internal/domain/certification"
)

func certificationDeps() orchestrators.CertificationDeps {
	return orchestrators.CertificationDeps{
		Certifications: stores.CertificationStore,
		Accounts:       stores.AccountStore,
		Catalog:        catalog,
		Rules:          rules,
		Audit:          stores.AuditStore,
		Events:         publisher,
		Now:            timeNow,
		GenerateID:     generateID,
	}
}

type ruleResponse struct {
	projections.RuleView
	MessageHTML string `json:"messageHtml"`
}

type ruleGroupResponse struct {
	Name  string         `json:"name"`
	Rules []ruleResponse `json:"rules"`
}

func renderGroups(groups []projections.RuleGroupView) []ruleGroupResponse {
	out := make([]ruleGroupResponse, 0, len(groups))
	for _, g := range groups {
		rg := ruleGroupResponse{Name: g.Name, Rules: make([]ruleResponse, 0, len(g.Rules))}
		for _, rv := range g.Rules {
			rg.Rules = append(rg.Rules, ruleResponse{RuleView: rv, MessageHTML: renderMarkdown(rv.Markdown)})
		}
		out = append(out, rg)
	}
	return out
}

// handleCertificationRules lists the rule table by group (GET /api/certifications/rules)
func handleCertificationRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, renderGroups(projections.QueryCertificationRules(rules)))
}

// handleCertificationAreas lists every certifiable area name for the admin dropdown.
func handleCertificationAreas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rules.Areas())
}

// handleCertificationCheck handles GET /api/certifications/check?userId=&shopArea=
// POST: 200 with the decision whether or not the user is allowed
func handleCertificationCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("shopArea") == "" {
		writeJSONError(w, http.StatusBadRequest, "shopArea is required")
		return
	}
	d, err := orchestrators.CheckCertification(r.Context(), actorFrom(r), q.Get("userId"), q.Get("shopArea"), certificationDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type certificationStatusResponse struct {
	UserID      string                        `json:"userId"`
	Held        []certification.Certification `json:"held"`
	Groups      []ruleGroupResponse           `json:"groups"`
	Outstanding []string                      `json:"outstanding"`
}

// handleUserCertifications handles GET /api/users/{id}/certifications (self or admin)
func handleUserCertifications(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !canView(r, userID) {
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	status, err := projections.QueryCertificationStatus(r.Context(), userID, projections.CertificationStatusDeps{
		AccountStore:       stores.AccountStore,
		CertificationStore: stores.CertificationStore,
		Rules:              rules,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, certificationStatusResponse{
		UserID:      status.UserID,
		Held:        status.Held,
		Groups:      renderGroups(status.Groups),
		Outstanding: status.Outstanding,
	})
}

type grantCertificationRequest struct {
	ShopArea string `json:"shopArea" validate:"required"`
}

// handleGrantCertification handles POST /api/users/{id}/certifications
// POST: 201 when newly granted, 200 when already held
func handleGrantCertification(w http.ResponseWriter, r *http.Request) {
	var req grantCertificationRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	userID := r.PathValue("id")
	created, err := orchestrators.ExecuteGrantCertification(r.Context(), orchestrators.GrantCertificationInput{
		Actor:    actorFrom(r),
		UserID:   userID,
		ShopArea: req.ShopArea,
	}, certificationDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	held, err := stores.CertificationStore.ListByUser(r.Context(), userID)
	if err != nil {
		internalError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	for _, c := range held {
		if c.ShopArea == req.ShopArea {
			writeJSON(w, status, c)
			return
		}
	}
	writeJSON(w, status, map[string]any{"userId": userID, "shopArea": req.ShopArea, "created": created})
}

// handleRevokeCertification handles DELETE /api/users/{id}/certifications/{certId}
func handleRevokeCertification(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteRevokeCertification(r.Context(), actorFrom(r), r.PathValue("id"), r.PathValue("certId"), certificationDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
