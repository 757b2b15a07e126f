package domain

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSent     Status = "sent"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSent:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusSent
}

// CanTransition lists the only moves the store may perform.
// approved is the in-flight delivery claim: it either completes to sent or
// is released back to pending.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusSent || to == StatusPending
	}
	return false
}

// Message Invariants:
// 1. Recipient fields are resolved once at submission and never rewritten.
// 2. Anonymous messages carry no submitter identity.
// 3. Only Status changes after creation, and only through CanTransition.
type Message struct {
	ID                int64     `json:"id"`
	Category          string    `json:"category"`
	RecipientName     string    `json:"recipient_name"`
	RecipientEmail    string    `json:"recipient_email"`
	RecipientPhoneExt string    `json:"recipient_phone_ext,omitempty"`
	SubmitterName     *string   `json:"worker_name"`
	SubmitterEmail    *string   `json:"worker_email"`
	SubmitterPhone    *string   `json:"worker_phone"`
	Anonymous         bool      `json:"is_anonymous"`
	Topic             string    `json:"topic"`
	Body              string    `json:"message"`
	Timestamp         string    `json:"timestamp"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// Anonymize drops every submitter identity field and marks the message anonymous.
func (m *Message) Anonymize() {
	m.Anonymous = true
	m.SubmitterName = nil
	m.SubmitterEmail = nil
	m.SubmitterPhone = nil
}

// Clone returns a deep copy so stores never share pointers with callers.
func (m *Message) Clone() *Message {
	c := *m
	c.SubmitterName = cloneString(m.SubmitterName)
	c.SubmitterEmail = cloneString(m.SubmitterEmail)
	c.SubmitterPhone = cloneString(m.SubmitterPhone)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
