package rate

import (
	"testing"

	"github.com/shopspring/decimal"

	"makerspace/internal/domain/account"
	"makerspace/internal/domain/shoparea"
)

func TestFor(t *testing.T) {
	catalog := shoparea.Default()
	forge, _ := catalog.Lookup("Forge")
	plasma, _ := catalog.Lookup("CNC Plasma")
	laser, _ := catalog.Lookup("Boss Laser")

	tests := []struct {
		name      string
		userType  string
		area      shoparea.Area
		wantAmt   int64
		wantLabel string
	}{
		{"steward free", account.TypeSteward, forge, 0, LabelStewardFree},
		{"steward plasma exemption", account.TypeSteward, plasma, 24, LabelSteward},
		{"steward laser exemption", account.TypeSteward, laser, 24, LabelSteward},
		{"cave-pro", account.TypeCavePro, forge, 18, LabelCavePro},
		{"member", account.TypeMember, forge, 18, LabelMember},
		{"admin", account.TypeAdmin, forge, 18, LabelMember},
		{"non-member", account.TypeNonMember, forge, 36, LabelNonMember},
		{"unrecognized", "visitor", laser, 48, LabelNonMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := For(tt.userType, tt.area)
			if !q.Amount.Equal(decimal.NewFromInt(tt.wantAmt)) || q.Label != tt.wantLabel {
				t.Errorf("For(%s, %s) = %s %q, want %d %q", tt.userType, tt.area.Name, q.Amount, q.Label, tt.wantAmt, tt.wantLabel)
			}
		})
	}
}
