package domain

import (
	"time"

	"github.com/guregu/null/v5"
)

const TableConnexionLogs = "connexion_logs"

// ConnexionLog tracks failed logins per email
type ConnexionLog struct {
	Audit
	Email          string
	IP             string
	UserAgent      string
	FailedAttempts int
	BlockedUntil   null.Time
}

// NewConnexionLog starts tracking an email; history is off for this type
func NewConnexionLog(email string) *ConnexionLog {
	return &ConnexionLog{
		Audit: newAudit(),
		Email: NormalizeEmail(email),
	}
}

// Blocked reports whether logins are refused at now
func (l *ConnexionLog) Blocked(now time.Time) bool {
	return l.BlockedUntil.Valid && now.Before(l.BlockedUntil.Time)
}

// RegisterFailure counts a failed attempt and blocks the email once max is reached
func (l *ConnexionLog) RegisterFailure(now time.Time, max int, lockout time.Duration) {
	l.FailedAttempts++
	if l.FailedAttempts >= max {
		l.BlockedUntil = null.TimeFrom(now.Add(lockout).UTC())
	}
}

// Reset clears the failure counter after a successful login
func (l *ConnexionLog) Reset() {
	l.FailedAttempts = 0
	l.BlockedUntil = null.Time{}
}

func (l *ConnexionLog) HistoryTable() string { return TableConnexionLogs }

func (l *ConnexionLog) HistoryValues() map[string]any {
	v := l.Audit.values()
	v["email"] = l.Email
	v["ip"] = l.IP
	v["userAgent"] = l.UserAgent
	v["failedAttempts"] = l.FailedAttempts
	v["blockedUntil"] = l.BlockedUntil.Ptr()
	return v
}
