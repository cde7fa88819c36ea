package domain

import (
	"fmt"
	"strings"
	"time"
)

// AuditActorSystem — актор для переходов, выполняемых самой системой.
const AuditActorSystem = "SYSTEM"

// AuditEntry — одна запись журнала: кто, когда и что сделал.
type AuditEntry struct {
	Timestamp time.Time
	Actor     string
	Action    string
}

// NewAuditEntry создаёт запись журнала, отвергая пустых акторов и действия.
func NewAuditEntry(timestamp time.Time, actor, action string) (AuditEntry, error) {
	a := strings.TrimSpace(actor)
	act := strings.TrimSpace(action)
	if a == "" || act == "" {
		return AuditEntry{}, ErrInvalidAuditEntry
	}
	return AuditEntry{Timestamp: timestamp, Actor: a, Action: act}, nil
}

// AuditTrail — упорядоченный журнал записей, который только растёт.
// Append возвращает новый журнал; прежние значения остаются
// неизменяемыми снимками и могут безопасно храниться.
type AuditTrail struct {
	entries []AuditEntry
}

// NewAuditTrail возвращает пустой журнал.
func NewAuditTrail() AuditTrail {
	return AuditTrail{}
}

// ReconstructAuditTrail восстанавливает журнал из персистентности,
// сохраняя порядок записей.
func ReconstructAuditTrail(entries []AuditEntry) (AuditTrail, error) {
	copied := make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		entry, err := NewAuditEntry(e.Timestamp, e.Actor, e.Action)
		if err != nil {
			return AuditTrail{}, err
		}
		copied = append(copied, entry)
	}
	return AuditTrail{entries: copied}, nil
}

// Append возвращает новый журнал с добавленной записью.
// Исходный журнал не изменяется.
func (t AuditTrail) Append(entry AuditEntry) AuditTrail {
	entries := make([]AuditEntry, len(t.entries), len(t.entries)+1)
	copy(entries, t.entries)
	return AuditTrail{entries: append(entries, entry)}
}

// Entries возвращает копию записей журнала в порядке добавления.
func (t AuditTrail) Entries() []AuditEntry {
	entries := make([]AuditEntry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

// Len возвращает число записей.
func (t AuditTrail) Len() int { return len(t.entries) }

// Last возвращает последнюю запись журнала.
func (t AuditTrail) Last() (AuditEntry, bool) {
	if len(t.entries) == 0 {
		return AuditEntry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// String форматирует журнал для логов.
func (t AuditTrail) String() string {
	return fmt.Sprintf("AuditTrail[%d entries]", len(t.entries))
}
