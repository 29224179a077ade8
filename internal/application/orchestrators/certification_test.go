package orchestrators

import (
	"context"
	"errors"
	"testing"

	"makerspace/internal/adapters/events"
	"makerspace/internal/domain/account"
	"makerspace/internal/domain/audit"
	"makerspace/internal/domain/certification"
	"makerspace/internal/domain/certrule"
	"makerspace/internal/domain/shoparea"
)

func newCertificationDeps() (CertificationDeps, *fakeCertifications, *fakeAudit, *events.Recorder) {
	certs := newFakeCertifications()
	auditLog := &fakeAudit{}
	rec := &events.Recorder{}
	deps := CertificationDeps{
		Certifications: certs,
		Accounts:       newFakeAccounts(user("u1", account.TypeMember), user("a1", account.TypeAdmin)),
		Catalog:        shoparea.Default(),
		Rules:          certrule.Default(),
		Audit:          auditLog,
		Events:         rec,
		Now:            clock,
		GenerateID:     sequentialIDs("cert"),
	}
	return deps, certs, auditLog, rec
}

func TestGrantCertification(t *testing.T) {
	deps, certs, auditLog, rec := newCertificationDeps()
	admin := Actor{ID: "a1", UserType: account.TypeAdmin}
	ctx := context.Background()

	created, err := ExecuteGrantCertification(ctx, GrantCertificationInput{Actor: admin, UserID: "u1", ShopArea: " Forge "}, deps)
	if err != nil || !created {
		t.Fatalf("grant: created=%v err=%v", created, err)
	}
	c := certs.byUser["u1"]["Forge"]
	if c.GrantedBy != "a1" || c.Source != certification.SourceAdmin {
		t.Errorf("certification = %+v", c)
	}

	created, err = ExecuteGrantCertification(ctx, GrantCertificationInput{Actor: admin, UserID: "u1", ShopArea: "Forge"}, deps)
	if err != nil || created {
		t.Errorf("repeat grant: created=%v err=%v", created, err)
	}
	if len(auditLog.events) != 1 || len(rec.Events()) != 1 {
		t.Errorf("side effects on repeat: audit=%d events=%d", len(auditLog.events), len(rec.Events()))
	}

	// Tool-only rules are grantable even though they are not bookable areas.
	if _, err := ExecuteGrantCertification(ctx, GrantCertificationInput{Actor: admin, UserID: "u1", ShopArea: "Table Saw"}, deps); err != nil {
		t.Errorf("tool grant: %v", err)
	}
}

func TestGrantCertification_Rejections(t *testing.T) {
	deps, _, _, _ := newCertificationDeps()
	admin := Actor{ID: "a1", UserType: account.TypeAdmin}
	tests := []struct {
		name  string
		input GrantCertificationInput
		want  error
	}{
		{"non-admin", GrantCertificationInput{Actor: Actor{ID: "u1", UserType: account.TypeMember}, UserID: "u1", ShopArea: "Forge"}, ErrForbidden},
		{"unknown area", GrantCertificationInput{Actor: admin, UserID: "u1", ShopArea: "Moon Base"}, ErrValidation},
		{"empty area", GrantCertificationInput{Actor: admin, UserID: "u1", ShopArea: "  "}, ErrValidation},
		{"unknown user", GrantCertificationInput{Actor: admin, UserID: "ghost", ShopArea: "Forge"}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExecuteGrantCertification(context.Background(), tt.input, deps); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRevokeCertification(t *testing.T) {
	deps, certs, auditLog, _ := newCertificationDeps()
	admin := Actor{ID: "a1", UserType: account.TypeAdmin}
	ctx := context.Background()
	certs.Grant(ctx, certification.Certification{ID: "c1", UserID: "u1", ShopArea: "Forge"})

	if err := ExecuteRevokeCertification(ctx, Actor{ID: "u1", UserType: account.TypeMember}, "u1", "c1", deps); !errors.Is(err, ErrForbidden) {
		t.Errorf("member revoke err = %v", err)
	}
	if err := ExecuteRevokeCertification(ctx, admin, "u1", "c1", deps); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if certs.holds("u1", "Forge") {
		t.Error("certification still held")
	}
	if len(auditLog.events) != 1 || auditLog.events[0].Action != audit.ActionRevoke {
		t.Errorf("audit = %+v", auditLog.events)
	}
	if err := ExecuteRevokeCertification(ctx, admin, "u1", "c1", deps); !errors.Is(err, ErrNotFound) {
		t.Errorf("second revoke err = %v", err)
	}
}

func TestCheckCertification(t *testing.T) {
	deps, certs, _, _ := newCertificationDeps()
	ctx := context.Background()
	member := Actor{ID: "u1", UserType: account.TypeMember}

	d, err := CheckCertification(ctx, member, "", "Boss Laser", deps)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Method != certrule.MethodClass || len(d.QualifyingClasses) == 0 {
		t.Errorf("decision = %+v", d)
	}

	certs.Grant(ctx, certification.Certification{ID: "c1", UserID: "u1", ShopArea: "Boss Laser"})
	if d, _ := CheckCertification(ctx, member, "u1", "Boss Laser", deps); !d.Allowed {
		t.Error("held certification should allow")
	}
	if d, _ := CheckCertification(ctx, member, "u1", "Table Saw", deps); !d.Allowed {
		t.Error("tool rules never block")
	}
	if _, err := CheckCertification(ctx, member, "a1", "Forge", deps); !errors.Is(err, ErrForbidden) {
		t.Errorf("checking another user err = %v", err)
	}
	if d, _ := CheckCertification(ctx, Actor{ID: "a1", UserType: account.TypeAdmin}, "a1", "Forge", deps); !d.Allowed {
		t.Error("admin bypasses area gates")
	}
}
