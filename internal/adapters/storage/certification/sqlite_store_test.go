package certification

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"makerspace/internal/adapters/storage/storagetest"
	domain "makerspace/internal/domain/certification"
)

func cert(id, user, area string) domain.Certification {
	return domain.Certification{
		ID:        id,
		UserID:    user,
		ShopArea:  area,
		GrantedBy: domain.GrantedBySystem,
		Source:    domain.SourceAttendance,
		GrantedAt: time.Date(2026, 3, 13, 21, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteStore_GrantIsIdempotent(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.InsertAccount(t, db, "u1", "member")
	store := NewSQLiteStore(db)
	ctx := context.Background()

	created, err := store.Grant(ctx, cert("c1", "u1", "Forge"))
	if err != nil || !created {
		t.Fatalf("first Grant = %v, %v", created, err)
	}
	created, err = store.Grant(ctx, cert("c2", "u1", "Forge"))
	if err != nil {
		t.Fatalf("duplicate Grant errored: %v", err)
	}
	if created {
		t.Error("duplicate Grant reported created")
	}

	held, _ := store.ListByUser(ctx, "u1")
	if len(held) != 1 || held[0].ID != "c1" {
		t.Errorf("held = %+v", held)
	}
}

func TestSQLiteStore_ConcurrentGrants(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.InsertAccount(t, db, "u1", "member")
	store := NewSQLiteStore(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for _, id := range []string{"g1", "g2", "g3", "g4", "g5"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			created, err := store.Grant(ctx, cert(id, "u1", "Glowforge"))
			if err != nil {
				t.Errorf("Grant: %v", err)
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("created %d times, want 1", createdCount)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.InsertAccount(t, db, "u1", "member")
	storagetest.InsertAccount(t, db, "u2", "member")
	store := NewSQLiteStore(db)
	ctx := context.Background()

	store.Grant(ctx, cert("c1", "u1", "Forge"))
	store.Grant(ctx, cert("c2", "u1", "3D Printer"))

	if _, err := store.Delete(ctx, "u2", "c1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("delete via wrong user err = %v", err)
	}
	removed, err := store.Delete(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed.ShopArea != "Forge" {
		t.Errorf("removed = %+v", removed)
	}
	held, _ := store.ListByUser(ctx, "u1")
	if len(held) != 1 || held[0].ShopArea != "3D Printer" {
		t.Errorf("held after delete = %+v", held)
	}
}
