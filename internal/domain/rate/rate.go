// Package rate computes the hourly charge for a booking.
package rate

import (
	"github.com/shopspring/decimal"

	"makerspace/internal/domain/account"
	"makerspace/internal/domain/shoparea"
)

// Labels shown next to the amount.
const (
	LabelStewardFree = "Free (Steward)"
	LabelSteward     = "Steward Rate"
	LabelCavePro     = "Cave Pro Rate"
	LabelMember      = "Member Rate"
	LabelNonMember   = "Non-Member Rate"
)

// StewardPaidAreas are high-cost areas where stewards pay the member rate.
var StewardPaidAreas = map[string]bool{
	"Boss Laser": true,
	"CNC Plasma": true,
}

// Quote is an hourly amount with its display label.
type Quote struct {
	Amount decimal.Decimal `json:"amount"`
	Label  string          `json:"label"`
}

// For returns the rate a user type pays for an area.
// PRE: area is a resolved bookable area
// POST: Amount is non-negative
func For(userType string, area shoparea.Area) Quote {
	switch userType {
	case account.TypeSteward:
		if StewardPaidAreas[area.Name] {
			return Quote{Amount: area.MemberRate, Label: LabelSteward}
		}
		return Quote{Amount: decimal.Zero, Label: LabelStewardFree}
	case account.TypeCavePro:
		return Quote{Amount: area.MemberRate, Label: LabelCavePro}
	case account.TypeMember, account.TypeAdmin:
		return Quote{Amount: area.MemberRate, Label: LabelMember}
	default:
		return Quote{Amount: area.NonMemberRate, Label: LabelNonMember}
	}
}
