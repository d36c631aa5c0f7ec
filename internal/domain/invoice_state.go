package domain

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// InvoiceState is both the state of an invoice and the code of its log entries.
type InvoiceState string

const (
	InvoiceStateCreated   InvoiceState = "CREATED"
	InvoiceStateUpdated   InvoiceState = "UPDATED"
	InvoiceStateGenerated InvoiceState = "GENERATED"
	InvoiceStateSent      InvoiceState = "SENT"
	InvoiceStatePaid      InvoiceState = "PAID"
	InvoiceStateCancelled InvoiceState = "CANCELLED"
	InvoiceStateUnpaid    InvoiceState = "UNPAID"
)

var invoiceStates = []InvoiceState{
	InvoiceStateCreated,
	InvoiceStateUpdated,
	InvoiceStateGenerated,
	InvoiceStateSent,
	InvoiceStatePaid,
	InvoiceStateCancelled,
	InvoiceStateUnpaid,
}

// InvoiceStates lists every state in lifecycle order
func InvoiceStates() []InvoiceState {
	out := make([]InvoiceState, len(invoiceStates))
	copy(out, invoiceStates)
	return out
}

// Valid reports whether s belongs to the enumeration
func (s InvoiceState) Valid() bool {
	for _, v := range invoiceStates {
		if s == v {
			return true
		}
	}
	return false
}

func (s InvoiceState) String() string {
	return string(s)
}

// ParseInvoiceState parses a state name, case-insensitively
func ParseInvoiceState(s string) (InvoiceState, error) {
	state := InvoiceState(strings.ToUpper(strings.TrimSpace(s)))
	if !state.Valid() {
		return "", errors.Wrapf(ErrInvalidInvoiceState, "%q", s)
	}
	return state, nil
}

// CanTransition reports whether an invoice may move from one state to another.
// Any state of the enumeration may be set from any other one.
func CanTransition(from, to InvoiceState) bool {
	return to.Valid()
}
