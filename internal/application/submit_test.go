package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/notify"
	"github.com/evp-nightshift/messenger/internal/repository/memory"
)

func TestSubmit_ImmediateSend(t *testing.T) {
	store := memory.New()
	sender := &recordingSender{}
	svc := newService(t, store, sender, false)

	res, err := svc.Submit(context.Background(), generalInquiry())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, res.Status)
	assert.Zero(t, res.MessageID)
	assert.Equal(t, "Message sent successfully", res.Message)

	calls := sender.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "office@example.org", calls[0].RecipientEmail)
	assert.Equal(t, "204", calls[0].RecipientPhoneExt)
	assert.Equal(t, "a@x.com", *calls[0].SubmitterEmail)
	assert.Zero(t, store.Len(), "immediate sends are never persisted")
}

func TestSubmit_TimestampInConfiguredZone(t *testing.T) {
	sender := &recordingSender{}
	svc := newService(t, memory.New(), sender, false)

	_, err := svc.Submit(context.Background(), generalInquiry())
	require.NoError(t, err)

	want := fixedNow.In(svc.loc).Format(TimestampLayout)
	assert.Equal(t, want, sender.calls()[0].Timestamp)
	if svc.loc.String() == "America/Halifax" {
		assert.Equal(t, "Saturday, October 17, 2026 at 11:30:00 PM ADT", want)
	}
}

func TestSubmit_ImmediateSendFailure(t *testing.T) {
	store := memory.New()
	sender := &recordingSender{err: domain.WrapDelivery(errors.New("provider timeout"))}
	svc := newService(t, store, sender, false)

	res, err := svc.Submit(context.Background(), generalInquiry())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.Zero(t, store.Len())
}

func TestSubmit_ConfigurationErrorSurfaces(t *testing.T) {
	svc := newService(t, memory.New(), notify.NewNotifier(notify.NewResendMailer("", "")), false)

	_, err := svc.Submit(context.Background(), generalInquiry())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		cmd  SubmitCommand
		want error
	}{
		{"missing category", SubmitCommand{Topic: "t", Body: "b"}, domain.ErrMissingFields},
		{"missing topic", SubmitCommand{Category: "General Inquiry", Body: "b"}, domain.ErrMissingFields},
		{"missing body", SubmitCommand{Category: "General Inquiry", Topic: "t"}, domain.ErrMissingFields},
		{"missing fields win over bad category", SubmitCommand{Category: "Nope", Topic: "t"}, domain.ErrMissingFields},
		{"unknown category", SubmitCommand{Category: "Nope", Topic: "t", Body: "b"}, domain.ErrInvalidCategory},
		{"category match is exact", SubmitCommand{Category: "general inquiry", Topic: "t", Body: "b"}, domain.ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, approval := range []bool{false, true} {
				store := new(MockStore)
				sender := new(MockSender)
				reviewer := new(MockReviewer)
				svc := New(store, testDirectory(), sender, reviewer, WithApproval(approval))

				_, err := svc.Submit(context.Background(), tt.cmd)
				assert.ErrorIs(t, err, tt.want)
				assert.ErrorIs(t, err, domain.ErrValidation)

				store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
				reviewer.AssertNotCalled(t, "NotifyReviewer", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSubmit_Anonymity(t *testing.T) {
	tests := []struct {
		name string
		cmd  SubmitCommand
	}{
		{
			name: "explicit flag",
			cmd: SubmitCommand{
				Category: "Payroll", Topic: "Overtime", Body: "Missing hours",
				SubmitterName: domain.StringPtr("A. Worker"), SubmitterEmail: domain.StringPtr("a@x.com"),
				SubmitterPhone: domain.StringPtr("555-0100"), Anonymous: true,
			},
		},
		{
			name: "anonymous category",
			cmd: SubmitCommand{
				Category: "Anonymous Company Feedback", Topic: "Culture", Body: "Feedback",
				SubmitterName: domain.StringPtr("A. Worker"), SubmitterEmail: domain.StringPtr("a@x.com"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/immediate", func(t *testing.T) {
			sender := &recordingSender{}
			svc := newService(t, memory.New(), sender, false)

			_, err := svc.Submit(context.Background(), tt.cmd)
			require.NoError(t, err)

			env := sender.calls()[0]
			assert.True(t, env.Anonymous)
			assert.Nil(t, env.SubmitterName)
			assert.Nil(t, env.SubmitterEmail)
			assert.Nil(t, env.SubmitterPhone)
		})

		t.Run(tt.name+"/stored", func(t *testing.T) {
			store := memory.New()
			svc := newService(t, store, &recordingSender{}, true)

			res, err := svc.Submit(context.Background(), tt.cmd)
			require.NoError(t, err)

			msg, err := store.Get(context.Background(), res.MessageID)
			require.NoError(t, err)
			assert.True(t, msg.Anonymous)
			assert.Nil(t, msg.SubmitterName)
			assert.Nil(t, msg.SubmitterEmail)
			assert.Nil(t, msg.SubmitterPhone)
		})
	}
}

func TestSubmit_PendingStoredOnce(t *testing.T) {
	for _, reviewerErr := range []error{nil, domain.WrapDelivery(errors.New("smtp down")), domain.ErrConfiguration} {
		store := memory.New()
		sender := &recordingSender{}
		reviewer := new(MockReviewer)
		reviewer.On("NotifyReviewer", mock.Anything, mock.Anything).Return(reviewerErr).Once()

		svc := New(store, testDirectory(), sender, reviewer, WithApproval(true))

		res, err := svc.Submit(context.Background(), generalInquiry())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, res.Status)
		assert.Equal(t, "Message submitted for approval", res.Message)
		assert.Positive(t, res.MessageID)

		assert.Equal(t, 1, store.Len())
		assert.Empty(t, sender.calls(), "nothing is delivered before approval")
		reviewer.AssertExpectations(t)

		msg, err := store.Get(context.Background(), res.MessageID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, msg.Status)
		assert.Equal(t, "office@example.org", msg.RecipientEmail)
	}
}

func TestSubmit_EmptyIdentityStringsStoredAsNull(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, &recordingSender{}, true)

	cmd := generalInquiry()
	cmd.SubmitterName = new(string)
	res, err := svc.Submit(context.Background(), cmd)
	require.NoError(t, err)

	msg, err := store.Get(context.Background(), res.MessageID)
	require.NoError(t, err)
	assert.Nil(t, msg.SubmitterName)
	assert.Equal(t, "a@x.com", *msg.SubmitterEmail)
}
