package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnexionLogLockout(t *testing.T) {
	now := time.Now()
	l := NewConnexionLog(" Jane@Example.com ")
	assert.Equal(t, "jane@example.com", l.Email)

	for i := 0; i < 4; i++ {
		l.RegisterFailure(now, 5, 30*time.Minute)
	}
	assert.False(t, l.Blocked(now))

	l.RegisterFailure(now, 5, 30*time.Minute)
	assert.True(t, l.Blocked(now))
	assert.True(t, l.Blocked(now.Add(29*time.Minute)))
	assert.False(t, l.Blocked(now.Add(31*time.Minute)))

	l.Reset()
	assert.Equal(t, 0, l.FailedAttempts)
	assert.False(t, l.Blocked(now))
}
