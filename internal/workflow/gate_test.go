package workflow_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commission-art-backend/internal/validation"
	"commission-art-backend/internal/workflow"
)

var (
	ownerID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	artistID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	adminID  = uuid.MustParse("33333333-3333-3333-3333-333333333333")

	owner  = workflow.Actor{ID: ownerID, Role: workflow.RoleUser}
	artist = workflow.Actor{ID: artistID, Role: workflow.RoleArtist}
	admin  = workflow.Actor{ID: adminID, Role: workflow.RoleAdmin}
)

func order(status workflow.Status) workflow.Order {
	return workflow.Order{Status: status, UserID: ownerID}
}

func fullPayload() workflow.Payload {
	return workflow.Payload{
		Reason:        "not my style",
		Price:         decimal.NewFromInt(1500),
		ScreenshotURL: "https://example.supabase.co/storage/v1/object/public/order-images/o/payment.png",
		FinalWorkURL:  "https://example.supabase.co/storage/v1/object/public/final-works/o/final.png",
	}
}

func TestAttemptTransition_HappyPath(t *testing.T) {
	o := order(workflow.StatusPending)

	update, err := workflow.AttemptTransition(o, workflow.ActionAccept, artist, workflow.Payload{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDiscussing, update.Status)
	require.NotNil(t, update.ArtistID)
	assert.Equal(t, artistID, *update.ArtistID)

	o.Status = update.Status
	update, err = workflow.AttemptTransition(o, workflow.ActionSetPrice, artist, workflow.Payload{Price: decimal.RequireFromString("2500.50")})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPaymentPending, update.Status)
	require.NotNil(t, update.Price)
	assert.True(t, update.Price.Equal(decimal.RequireFromString("2500.50")))

	o.Status = update.Status
	update, err = workflow.AttemptTransition(o, workflow.ActionUploadPaymentProof, owner, fullPayload())
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPaymentPending, update.Status)
	require.NotNil(t, update.PaymentScreenshotURL)
	o.HasPaymentScreenshot = true

	update, err = workflow.AttemptTransition(o, workflow.ActionConfirmPayment, admin, workflow.Payload{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, update.Status)

	o.Status = update.Status
	update, err = workflow.AttemptTransition(o, workflow.ActionComplete, artist, fullPayload())
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, update.Status)
	require.NotNil(t, update.FinalWorkURL)
	assert.Nil(t, update.RejectionReason)
}

func TestAttemptTransition_UserCannotManage(t *testing.T) {
	cases := []struct {
		from   workflow.Status
		action workflow.Action
	}{
		{workflow.StatusPending, workflow.ActionAccept},
		{workflow.StatusPending, workflow.ActionReject},
		{workflow.StatusDiscussing, workflow.ActionSetPrice},
		{workflow.StatusPaymentPending, workflow.ActionConfirmPayment},
		{workflow.StatusPaymentPending, workflow.ActionRejectPayment},
		{workflow.StatusInProgress, workflow.ActionComplete},
	}

	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			o := order(tc.from)
			o.HasPaymentScreenshot = true
			before := o

			update, err := workflow.AttemptTransition(o, tc.action, owner, fullPayload())
			assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
			assert.Equal(t, workflow.Update{}, update)
			assert.Equal(t, before, o)
		})
	}
}

func TestAttemptTransition_OnlyOwnerUploadsPaymentProof(t *testing.T) {
	o := order(workflow.StatusPaymentPending)
	stranger := workflow.Actor{ID: uuid.New(), Role: workflow.RoleUser}

	for _, actor := range []workflow.Actor{stranger, artist, admin} {
		_, err := workflow.AttemptTransition(o, workflow.ActionUploadPaymentProof, actor, fullPayload())
		assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	}
}

func TestAttemptTransition_RejectsTransitionsOutsideGraph(t *testing.T) {
	for _, status := range workflow.Statuses() {
		for _, action := range []workflow.Action{
			workflow.ActionAccept,
			workflow.ActionReject,
			workflow.ActionSetPrice,
			workflow.ActionUploadPaymentProof,
			workflow.ActionConfirmPayment,
			workflow.ActionRejectPayment,
			workflow.ActionComplete,
		} {
			o := order(status)
			o.HasPaymentScreenshot = true
			actor := artist
			if action == workflow.ActionUploadPaymentProof {
				actor = owner
			}

			_, err := workflow.AttemptTransition(o, action, actor, fullPayload())
			if status.Terminal() {
				assert.ErrorIs(t, err, workflow.ErrInvalidTransition, "%s from %s", action, status)
			}
			if err == nil {
				assert.False(t, status.Terminal())
			}
		}
	}

	_, err := workflow.AttemptTransition(order(workflow.StatusCompleted), workflow.ActionConfirmPayment, artist, fullPayload())
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = workflow.AttemptTransition(order(workflow.StatusInProgress), workflow.ActionAccept, artist, fullPayload())
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = workflow.AttemptTransition(order(workflow.StatusPending), workflow.Action("refund"), admin, fullPayload())
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestAttemptTransition_RejectRequiresReason(t *testing.T) {
	o := order(workflow.StatusPending)

	for _, reason := range []string{"", "   "} {
		update, err := workflow.AttemptTransition(o, workflow.ActionReject, artist, workflow.Payload{Reason: reason})
		var vErr *validation.Error
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "rejection_reason", vErr.Field)
		assert.Equal(t, workflow.Update{}, update)
	}
	assert.Equal(t, workflow.StatusPending, o.Status)

	update, err := workflow.AttemptTransition(o, workflow.ActionReject, artist, workflow.Payload{Reason: "  too busy  "})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, update.Status)
	assert.Equal(t, "too busy", *update.RejectionReason)
}

func TestAttemptTransition_RejectPaymentRequiresReason(t *testing.T) {
	o := order(workflow.StatusPaymentPending)

	_, err := workflow.AttemptTransition(o, workflow.ActionRejectPayment, admin, workflow.Payload{})
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr))

	update, err := workflow.AttemptTransition(o, workflow.ActionRejectPayment, admin, workflow.Payload{Reason: "screenshot is unreadable"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, update.Status)
	require.NotNil(t, update.PaymentRejectionReason)
	assert.Nil(t, update.RejectionReason)
}

func TestAttemptTransition_SetPriceMustBePositive(t *testing.T) {
	o := order(workflow.StatusDiscussing)

	for _, p := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		_, err := workflow.AttemptTransition(o, workflow.ActionSetPrice, artist, workflow.Payload{Price: p})
		var vErr *validation.Error
		assert.True(t, errors.As(err, &vErr))
	}
}

func TestAttemptTransition_ConfirmPaymentNeedsScreenshot(t *testing.T) {
	o := order(workflow.StatusPaymentPending)

	_, err := workflow.AttemptTransition(o, workflow.ActionConfirmPayment, artist, workflow.Payload{})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	o.HasPaymentScreenshot = true
	update, err := workflow.AttemptTransition(o, workflow.ActionConfirmPayment, artist, workflow.Payload{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, update.Status)
}

func TestAttemptTransition_CompleteNeedsFinalWork(t *testing.T) {
	o := order(workflow.StatusInProgress)

	_, err := workflow.AttemptTransition(o, workflow.ActionComplete, artist, workflow.Payload{})
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "final_work", vErr.Field)
}

func TestAvailableActions(t *testing.T) {
	assert.Equal(t,
		[]workflow.Action{workflow.ActionAccept, workflow.ActionReject},
		workflow.AvailableActions(order(workflow.StatusPending), artist))
	assert.Empty(t, workflow.AvailableActions(order(workflow.StatusPending), owner))

	pp := order(workflow.StatusPaymentPending)
	assert.Equal(t, []workflow.Action{workflow.ActionUploadPaymentProof}, workflow.AvailableActions(pp, owner))
	assert.Equal(t, []workflow.Action{workflow.ActionRejectPayment}, workflow.AvailableActions(pp, admin))

	pp.HasPaymentScreenshot = true
	assert.Equal(t,
		[]workflow.Action{workflow.ActionConfirmPayment, workflow.ActionRejectPayment},
		workflow.AvailableActions(pp, admin))

	assert.Empty(t, workflow.AvailableActions(order(workflow.StatusCompleted), admin))
}

func TestParseAction(t *testing.T) {
	a, ok := workflow.ParseAction(" Confirm_Payment ")
	assert.True(t, ok)
	assert.Equal(t, workflow.ActionConfirmPayment, a)

	_, ok = workflow.ParseAction("refund")
	assert.False(t, ok)
}

func TestCanPlaceOrders(t *testing.T) {
	assert.True(t, workflow.CanPlaceOrders(workflow.RoleUser))
	assert.False(t, workflow.CanPlaceOrders(workflow.RoleArtist))
	assert.False(t, workflow.CanPlaceOrders(workflow.RoleAdmin))

	assert.Equal(t, []string{"create_orders"}, workflow.Capabilities(workflow.RoleUser))
	assert.NotContains(t, workflow.Capabilities(workflow.RoleArtist), "create_orders")
	assert.NotContains(t, workflow.Capabilities(workflow.RoleAdmin), "create_orders")
}

func TestCanManageOrders(t *testing.T) {
	assert.False(t, workflow.CanManageOrders(workflow.RoleUser))
	assert.True(t, workflow.CanManageOrders(workflow.RoleArtist))
	assert.True(t, workflow.CanManageOrders(workflow.RoleAdmin))
	assert.False(t, workflow.CanManageOrders(workflow.Role("guest")))
}
