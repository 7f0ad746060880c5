package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"commission-art-backend/internal/validation"
)

// Action is a user-triggered order operation.
type Action string

const (
	ActionAccept             Action = "accept"
	ActionReject             Action = "reject"
	ActionSetPrice           Action = "set_price"
	ActionUploadPaymentProof Action = "upload_payment_proof"
	ActionConfirmPayment     Action = "confirm_payment"
	ActionRejectPayment      Action = "reject_payment"
	ActionComplete           Action = "complete"
)

// ErrInvalidTransition matches every *InvalidTransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

type InvalidTransitionError struct {
	From   Status
	Action Action
	Role   Role
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s order in status %s as %s: %s", e.Action, e.From, e.Role, e.Reason)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type party int

const (
	partyManager party = iota
	partyOwner
)

type rule struct {
	from Status
	to   Status
	by   party
}

// Each action is legal from exactly one state.
var rules = map[Action]rule{
	ActionAccept:             {from: StatusPending, to: StatusDiscussing, by: partyManager},
	ActionReject:             {from: StatusPending, to: StatusRejected, by: partyManager},
	ActionSetPrice:           {from: StatusDiscussing, to: StatusPaymentPending, by: partyManager},
	ActionUploadPaymentProof: {from: StatusPaymentPending, to: StatusPaymentPending, by: partyOwner},
	ActionConfirmPayment:     {from: StatusPaymentPending, to: StatusInProgress, by: partyManager},
	ActionRejectPayment:      {from: StatusPaymentPending, to: StatusCancelled, by: partyManager},
	ActionComplete:           {from: StatusInProgress, to: StatusCompleted, by: partyManager},
}

var actionOrder = []Action{
	ActionAccept,
	ActionReject,
	ActionSetPrice,
	ActionUploadPaymentProof,
	ActionConfirmPayment,
	ActionRejectPayment,
	ActionComplete,
}

func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := rules[a]
	return a, ok
}

// Order is the part of an order row the gate needs.
type Order struct {
	Status               Status
	UserID               uuid.UUID
	HasPaymentScreenshot bool
}

type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Payload carries the input an action requires. Unused fields are ignored.
type Payload struct {
	Reason        string
	Price         decimal.Decimal
	ScreenshotURL string
	FinalWorkURL  string
}

// Update holds the order columns to persist. Nil fields are left untouched.
type Update struct {
	Status                 Status
	ArtistID               *uuid.UUID
	RejectionReason        *string
	Price                  *decimal.Decimal
	PaymentScreenshotURL   *string
	PaymentRejectionReason *string
	FinalWorkURL           *string
}

// Authorize checks state and actor for an action without looking at input.
func Authorize(order Order, action Action, actor Actor) error {
	r, ok := rules[action]
	if !ok {
		return &InvalidTransitionError{From: order.Status, Action: action, Role: actor.Role, Reason: "unknown action"}
	}
	if order.Status != r.from {
		return &InvalidTransitionError{From: order.Status, Action: action, Role: actor.Role, Reason: "not allowed in current status"}
	}
	switch r.by {
	case partyManager:
		if !CanManageOrders(actor.Role) {
			return &InvalidTransitionError{From: order.Status, Action: action, Role: actor.Role, Reason: "role cannot manage orders"}
		}
	case partyOwner:
		if actor.Role != RoleUser || actor.ID != order.UserID {
			return &InvalidTransitionError{From: order.Status, Action: action, Role: actor.Role, Reason: "only the client who placed the order can do this"}
		}
	}
	return nil
}

// AttemptTransition validates an action and returns the fields to persist.
// It performs no I/O and never modifies order.
func AttemptTransition(order Order, action Action, actor Actor, payload Payload) (Update, error) {
	if err := Authorize(order, action, actor); err != nil {
		return Update{}, err
	}

	update := Update{Status: rules[action].to}

	switch action {
	case ActionAccept:
		artistID := actor.ID
		update.ArtistID = &artistID

	case ActionReject:
		reason := strings.TrimSpace(payload.Reason)
		if err := validation.Reason("rejection_reason", reason); err != nil {
			return Update{}, err
		}
		update.RejectionReason = &reason

	case ActionSetPrice:
		if err := validation.Price(payload.Price); err != nil {
			return Update{}, err
		}
		price := payload.Price
		update.Price = &price

	case ActionUploadPaymentProof:
		if payload.ScreenshotURL == "" {
			return Update{}, &validation.Error{Field: "payment_screenshot", Message: "file is required"}
		}
		url := payload.ScreenshotURL
		update.PaymentScreenshotURL = &url

	case ActionConfirmPayment:
		if !order.HasPaymentScreenshot {
			return Update{}, &InvalidTransitionError{From: order.Status, Action: action, Role: actor.Role, Reason: "payment screenshot has not been uploaded"}
		}

	case ActionRejectPayment:
		reason := strings.TrimSpace(payload.Reason)
		if err := validation.Reason("payment_rejection_reason", reason); err != nil {
			return Update{}, err
		}
		update.PaymentRejectionReason = &reason

	case ActionComplete:
		if payload.FinalWorkURL == "" {
			return Update{}, &validation.Error{Field: "final_work", Message: "file is required"}
		}
		url := payload.FinalWorkURL
		update.FinalWorkURL = &url
	}

	return update, nil
}

// AvailableActions lists the actions actor may start on order. Input
// requirements are not checked, except that confirm_payment needs a screenshot.
func AvailableActions(order Order, actor Actor) []Action {
	actions := make([]Action, 0, 2)
	for _, a := range actionOrder {
		if Authorize(order, a, actor) != nil {
			continue
		}
		if a == ActionConfirmPayment && !order.HasPaymentScreenshot {
			continue
		}
		actions = append(actions, a)
	}
	return actions
}
