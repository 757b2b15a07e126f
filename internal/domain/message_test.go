package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusSent, false},
		{StatusApproved, StatusSent, true},
		{StatusApproved, StatusPending, true},
		{StatusApproved, StatusRejected, false},
		{StatusSent, StatusPending, false},
		{StatusRejected, StatusPending, false},
		{StatusRejected, StatusSent, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSent.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.False(t, Status("archived").Valid())
}

func TestAnonymize(t *testing.T) {
	m := &Message{
		SubmitterName:  StringPtr("A. Worker"),
		SubmitterEmail: StringPtr("a@x.com"),
		SubmitterPhone: StringPtr("555-0100"),
	}

	m.Anonymize()

	assert.True(t, m.Anonymous)
	assert.Nil(t, m.SubmitterName)
	assert.Nil(t, m.SubmitterEmail)
	assert.Nil(t, m.SubmitterPhone)
}

func TestClone_DoesNotShareIdentityPointers(t *testing.T) {
	m := &Message{SubmitterName: StringPtr("A. Worker")}
	c := m.Clone()

	*c.SubmitterName = "changed"

	assert.Equal(t, "A. Worker", *m.SubmitterName)
}

func TestErrorClasses(t *testing.T) {
	assert.ErrorIs(t, ErrMissingFields, ErrValidation)
	assert.ErrorIs(t, ErrInvalidCategory, ErrValidation)
	assert.Equal(t, "invalid category", ErrInvalidCategory.Error())

	wrapped := WrapDelivery(errors.New("smtp 451"))
	assert.ErrorIs(t, wrapped, ErrDelivery)

	cfg := fmt.Errorf("%w: RESEND_API_KEY is not set", ErrConfiguration)
	assert.ErrorIs(t, WrapDelivery(cfg), ErrConfiguration)
	assert.NotErrorIs(t, WrapDelivery(cfg), ErrDelivery)
}
