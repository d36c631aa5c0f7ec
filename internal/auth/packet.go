package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/andy/invoicer/internal/domain"
	"github.com/cockroachdb/errors"
)

// ErrPacketNotAuthentic means the packet signature does not match its data
var ErrPacketNotAuthentic = errors.Wrap(domain.UnAuthorizedError, "packet not authentic")

// Packets signs request payloads with HMAC-SHA256. A zero value (empty
// secret) accepts every packet.
type Packets struct {
	secret []byte
}

func NewPackets(secret string) *Packets {
	return &Packets{secret: []byte(secret)}
}

// Enabled reports whether signatures are checked
func (p *Packets) Enabled() bool {
	return p != nil && len(p.secret) > 0
}

// Sign returns the hex signature of data
func (p *Packets) Sign(data []byte) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the raw data bytes
func (p *Packets) Verify(signature string, data []byte) error {
	if !p.Enabled() {
		return nil
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return ErrPacketNotAuthentic
	}
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return ErrPacketNotAuthentic
	}
	return nil
}
