package models

import "github.com/shopspring/decimal"

// CustomerDetails identifies who the partner should debit.
type CustomerDetails struct {
	Phone    string `json:"phone" validate:"required,min=9"`
	FullName string `json:"full_name" validate:"required,max=100"`
}

// DebitItem is one line of a debit request.
type DebitItem struct {
	ID           int64           `json:"id" validate:"required"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	Quantity     int             `json:"quantity" validate:"required,min=1"`
}

// DebitRequest is the body sent to the partner debit_request endpoint.
type DebitRequest struct {
	BillAmount      decimal.Decimal `json:"billAmount"`
	ReferenceID     string          `json:"referenceID" validate:"required,max=50"`
	CustomerDetails CustomerDetails `json:"customerDetails"`
	Items           []DebitItem     `json:"items" validate:"required,min=1,dive"`
}

// PaymentRequest asks the partner to debit the customer for one of the caller's orders.
type PaymentRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	DebitRequest
}

// PaymentCallback is the partner's notification that a debit finished.
type PaymentCallback struct {
	Amount           decimal.Decimal `json:"Amount"`
	MNOTransactionID string          `json:"MNOTransactionID,omitempty"`
	ReferenceID      string          `json:"ReferenceID" validate:"required"`
	Description      string          `json:"Description" validate:"required"`
	Status           *bool           `json:"Status" validate:"required"`
}

// PaymentStatus maps the callback outcome to an order payment status.
func (cb *PaymentCallback) PaymentStatus() string {
	if cb.Status != nil && *cb.Status {
		return PaymentPaid
	}
	return PaymentFailed
}
