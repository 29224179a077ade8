package projections

import (
	"context"
	"sort"
	"strings"

	"makerspace/internal/domain/certification"
	"makerspace/internal/domain/certrule"
)

// RuleView is one requirement with a markdown rendering of its message.
type RuleView struct {
	certrule.Requirement
	Markdown string `json:"-"`
	Held     bool   `json:"held"`
}

// RuleGroupView is a display group of requirements.
type RuleGroupView struct {
	Name  string     `json:"name"`
	Rules []RuleView `json:"rules"`
}

// messageMarkdown emphasises each qualifying class title inside the message.
func messageMarkdown(r certrule.Requirement) string {
	md := r.Message
	for _, title := range r.QualifyingClasses {
		md = strings.ReplaceAll(md, `"`+title+`"`, "**"+title+"**")
	}
	return md
}

// QueryCertificationRules lists the rule table by group for UI population.
// POST: every group member appears with its requirement; Held is false
func QueryCertificationRules(rules *certrule.Table) []RuleGroupView {
	return groupRules(rules, nil)
}

func groupRules(rules *certrule.Table, held map[string]bool) []RuleGroupView {
	var out []RuleGroupView
	for _, g := range rules.Groups() {
		gv := RuleGroupView{Name: g.Name}
		for _, area := range g.Areas {
			req, ok := rules.Requirement(area)
			if !ok {
				continue
			}
			gv.Rules = append(gv.Rules, RuleView{Requirement: req, Markdown: messageMarkdown(req), Held: held[area]})
		}
		out = append(out, gv)
	}
	return out
}

// CertificationStatusDeps holds dependencies for QueryCertificationStatus.
type CertificationStatusDeps struct {
	AccountStore       AccountStore
	CertificationStore CertificationStore
	Rules              *certrule.Table
}

// CertificationStatus is a user's held certifications and the outstanding requirements.
type CertificationStatus struct {
	UserID      string                        `json:"userId"`
	Held        []certification.Certification `json:"held"`
	Groups      []RuleGroupView               `json:"groups"`
	Outstanding []string                      `json:"outstanding"`
}

// QueryCertificationStatus reports which blocking requirements a user still needs.
// PRE: userID exists
// POST: Held is sorted by area; Outstanding lists blocking areas not held
func QueryCertificationStatus(ctx context.Context, userID string, deps CertificationStatusDeps) (CertificationStatus, error) {
	if _, err := deps.AccountStore.GetByID(ctx, userID); err != nil {
		return CertificationStatus{}, err
	}
	held, err := deps.CertificationStore.ListByUser(ctx, userID)
	if err != nil {
		return CertificationStatus{}, err
	}
	sort.Slice(held, func(i, j int) bool { return held[i].ShopArea < held[j].ShopArea })

	p := certification.NewPrincipal(userID, "", held)
	out := CertificationStatus{
		UserID:      userID,
		Held:        held,
		Groups:      groupRules(deps.Rules, p.Certifications),
		Outstanding: []string{},
	}
	if out.Held == nil {
		out.Held = []certification.Certification{}
	}
	for _, req := range deps.Rules.Requirements() {
		if req.Blocks() && !p.Holds(req.Area) {
			out.Outstanding = append(out.Outstanding, req.Area)
		}
	}
	return out, nil
}
