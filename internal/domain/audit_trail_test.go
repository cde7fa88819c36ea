package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

func TestNewAuditEntry(t *testing.T) {
	now := time.Now().UTC()

	if _, err := domain.NewAuditEntry(now, "", "did something"); !errors.Is(err, domain.ErrInvalidAuditEntry) {
		t.Fatalf("expected ErrInvalidAuditEntry for empty actor, got %v", err)
	}
	if _, err := domain.NewAuditEntry(now, domain.AuditActorSystem, "  "); !errors.Is(err, domain.ErrInvalidAuditEntry) {
		t.Fatalf("expected ErrInvalidAuditEntry for blank action, got %v", err)
	}

	entry, err := domain.NewAuditEntry(now, domain.AuditActorSystem, "Order created")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Actor != "SYSTEM" || entry.Action != "Order created" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

// Append возвращает новый журнал; прежний снимок не изменяется.
func TestAuditTrailAppendImmutable(t *testing.T) {
	now := time.Now().UTC()
	first, _ := domain.NewAuditEntry(now, domain.AuditActorSystem, "first")
	second, _ := domain.NewAuditEntry(now.Add(time.Minute), domain.AuditActorSystem, "second")

	empty := domain.NewAuditTrail()
	one := empty.Append(first)
	two := one.Append(second)

	if empty.Len() != 0 || one.Len() != 1 || two.Len() != 2 {
		t.Fatalf("expected lengths 0/1/2, got %d/%d/%d", empty.Len(), one.Len(), two.Len())
	}

	last, ok := two.Last()
	if !ok || last.Action != "second" {
		t.Fatalf("unexpected last entry %+v", last)
	}
	if prevLast, ok := one.Last(); !ok || prevLast.Action != "first" {
		t.Fatalf("older snapshot mutated: %+v", prevLast)
	}

	// Копия из Entries не даёт доступа к внутреннему состоянию.
	entries := two.Entries()
	entries[0].Action = "tampered"
	if fresh := two.Entries(); fresh[0].Action != "first" {
		t.Fatalf("trail mutated through Entries copy: %+v", fresh[0])
	}
}

func TestReconstructAuditTrail(t *testing.T) {
	now := time.Now().UTC()
	trail, err := domain.ReconstructAuditTrail([]domain.AuditEntry{
		{Timestamp: now, Actor: "SYSTEM", Action: "first"},
		{Timestamp: now.Add(time.Minute), Actor: "SYSTEM", Action: "second"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trail.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", trail.Len())
	}

	if _, err := domain.ReconstructAuditTrail([]domain.AuditEntry{{Timestamp: now}}); !errors.Is(err, domain.ErrInvalidAuditEntry) {
		t.Fatalf("expected ErrInvalidAuditEntry, got %v", err)
	}
}
