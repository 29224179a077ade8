package certification

import (
	"errors"
	"strings"
	"time"

	"makerspace/internal/domain/account"
	"makerspace/internal/domain/certrule"
)

// GrantedBySystem marks certifications issued without a human actor.
const GrantedBySystem = "system"

// Grant sources
const (
	SourceAdmin      = "admin"
	SourceAttendance = "attendance"
)

var (
	ErrEmptyUser = errors.New("certification user cannot be empty")
	ErrEmptyArea = errors.New("certification shop area cannot be empty")
)

// Certification is an earned permission for one user and one shop area.
// INVARIANT: unique per (UserID, ShopArea); never updated after creation
type Certification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ShopArea  string    `json:"shopArea"`
	GrantedBy string    `json:"grantedBy"`
	Source    string    `json:"source"`
	GrantedAt time.Time `json:"grantedAt"`
}

// Validate checks required fields.
func (c *Certification) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(c.ShopArea) == "" {
		return ErrEmptyArea
	}
	return nil
}

// Principal is the resolved actor for gate decisions.
type Principal struct {
	ID             string
	UserType       string
	Certifications map[string]bool
}

// NewPrincipal builds a principal from a user type and held certifications.
func NewPrincipal(id, userType string, held []Certification) Principal {
	p := Principal{ID: id, UserType: userType, Certifications: make(map[string]bool, len(held))}
	for _, c := range held {
		p.Certifications[c.ShopArea] = true
	}
	return p
}

// Holds reports whether the principal holds a certification for the exact area name.
func (p Principal) Holds(area string) bool {
	return p.Certifications[area]
}

// Decision is the outcome of the certification gate.
type Decision struct {
	Allowed           bool     `json:"allowed"`
	Message           string   `json:"message,omitempty"`
	Method            string   `json:"method,omitempty"`
	QualifyingClasses []string `json:"qualifyingClasses,omitempty"`
}

// Check decides whether the principal may book the area.
// Order: no blocking requirement, admin bypass, held certification, otherwise denied with remediation.
func Check(rules *certrule.Table, p Principal, area string) Decision {
	req, ok := rules.Requirement(area)
	if !ok || !req.Blocks() {
		return Decision{Allowed: true}
	}
	if p.UserType == account.TypeAdmin {
		return Decision{Allowed: true}
	}
	if p.Holds(area) {
		return Decision{Allowed: true}
	}
	return Decision{
		Allowed:           false,
		Message:           req.Message,
		Method:            req.Method,
		QualifyingClasses: req.QualifyingClasses,
	}
}
