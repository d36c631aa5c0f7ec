package domain

import "time"

// Audit holds the columns shared by every audited entity and the
// per-instance history toggle.
type Audit struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time

	historyOff bool
}

func newAudit() Audit {
	now := time.Now().UTC().Truncate(time.Second)
	return Audit{CreatedAt: now, UpdatedAt: now}
}

// HistoryID implements history.Entity
func (a *Audit) HistoryID() int64 {
	return a.ID
}

// KeepHistory reports whether mutations of this instance are recorded.
func (a *Audit) KeepHistory() bool {
	return !a.historyOff
}

// SetKeepHistory toggles history for future mutations of this instance only.
func (a *Audit) SetKeepHistory(keep bool) {
	a.historyOff = !keep
}

// Touched returns the timestamp the next write should store as UpdatedAt.
// Assign it only once the write succeeded.
func (a *Audit) Touched() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func (a *Audit) values() map[string]any {
	return map[string]any{
		"id":        a.ID,
		"createdAt": a.CreatedAt,
		"updatedAt": a.UpdatedAt,
	}
}

// relation returns the id of a to-one relation as history expects it.
func relation(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
