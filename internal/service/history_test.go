package service

import (
	"testing"

	"solaudit/internal/models"
)

func audit(id uint, name string) *models.AuditResult {
	return &models.AuditResult{ID: id, UserID: 1, Name: name}
}

func TestHistoryCreatePrependsAndSelects(t *testing.T) {
	store := NewHistoryStore()

	store.Create(1, audit(1, "first"))
	store.Create(1, audit(2, "second"))

	list := store.List(1)
	if len(list) != 2 {
		t.Fatalf("expected 2 audits, got %d", len(list))
	}
	if list[0].ID != 2 || list[1].ID != 1 {
		t.Errorf("expected newest first, got IDs %d, %d", list[0].ID, list[1].ID)
	}

	current := store.Current(1)
	if current == nil || current.ID != 2 {
		t.Errorf("expected audit 2 to be current, got %v", current)
	}
}

func TestHistoryDeleteClearsCurrentSelection(t *testing.T) {
	store := NewHistoryStore()
	store.Create(1, audit(1, "first"))
	store.Create(1, audit(2, "second"))

	store.Delete(1, 2)

	if len(store.List(1)) != 1 {
		t.Fatalf("expected 1 audit after delete, got %d", len(store.List(1)))
	}
	if current := store.Current(1); current != nil {
		t.Errorf("expected selection cleared after deleting current audit, got %v", current)
	}
}

func TestHistoryDeleteKeepsUnrelatedSelection(t *testing.T) {
	store := NewHistoryStore()
	store.Create(1, audit(1, "first"))
	store.Create(1, audit(2, "second"))

	store.Delete(1, 1)

	if current := store.Current(1); current == nil || current.ID != 2 {
		t.Errorf("expected audit 2 to remain current, got %v", current)
	}
}

func TestHistorySetCurrent(t *testing.T) {
	store := NewHistoryStore()
	store.Create(1, audit(1, "first"))
	store.Create(1, audit(2, "second"))

	store.SetCurrent(1, 1)
	if current := store.Current(1); current == nil || current.ID != 1 {
		t.Errorf("expected audit 1 current, got %v", current)
	}

	// unknown ID leaves the selection unchanged
	store.SetCurrent(1, 99)
	if current := store.Current(1); current == nil || current.ID != 1 {
		t.Errorf("expected selection unchanged, got %v", current)
	}
}

func TestHistoryHydrate(t *testing.T) {
	store := NewHistoryStore()

	if store.Hydrated(1) {
		t.Error("fresh store should not be hydrated")
	}

	store.Hydrate(1, []*models.AuditResult{audit(2, "second"), audit(1, "first")})

	if !store.Hydrated(1) {
		t.Error("store should be hydrated after Hydrate")
	}
	if len(store.List(1)) != 2 {
		t.Errorf("expected 2 audits, got %d", len(store.List(1)))
	}
}

func TestHistoryHydrateDropsStaleSelection(t *testing.T) {
	store := NewHistoryStore()
	store.Create(1, audit(5, "gone"))

	store.Hydrate(1, []*models.AuditResult{audit(1, "first")})

	if current := store.Current(1); current != nil {
		t.Errorf("expected stale selection cleared, got %v", current)
	}
}

func TestHistoryIsolatedPerUser(t *testing.T) {
	store := NewHistoryStore()
	store.Create(1, audit(1, "mine"))

	if list := store.List(2); list != nil {
		t.Errorf("expected no audits for other user, got %v", list)
	}
	if current := store.Current(2); current != nil {
		t.Errorf("expected no selection for other user, got %v", current)
	}
}
