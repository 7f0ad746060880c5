package models

import "github.com/shopspring/decimal"

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TransitionRequest is the body of POST /orders/{order_id}/actions/{action}.
// Reason is used by reject and reject_payment, Price by set_price.
type TransitionRequest struct {
	Reason string           `json:"reason,omitempty" example:"The reference is too detailed for the deadline"`
	Price  *decimal.Decimal `json:"price,omitempty" swaggertype:"string" example:"2500"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
