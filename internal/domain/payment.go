package domain

import "time"

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodUPI            PaymentMethod = "upi"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodNetBanking     PaymentMethod = "net_banking"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Valid сообщает, входит ли способ оплаты в множество допустимых значений.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodNetBanking, PaymentMethodCashOnDelivery:
		return true
	default:
		return false
	}
}

// PaymentStatus описывает состояние платежа.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж заведён, но не подтверждён.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusSuccess — платёж подтверждён; назначены transaction ID, дата и сумма.
	PaymentStatusSuccess PaymentStatus = "success"
	// PaymentStatusFailed — платёж отклонён или не прошёл.
	PaymentStatusFailed PaymentStatus = "failed"
)

// Valid сообщает, входит ли статус платежа в множество допустимых значений.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// Payment описывает платёж, связанный с заказом строго один-к-одному.
type Payment struct {
	ID      string
	OrderID string
	Method  PaymentMethod
	Status  PaymentStatus
	// TransactionID — 12-значный уникальный идентификатор; назначается при первом
	// переходе в success и после этого никогда не меняется.
	TransactionID string
	// PaidAt — нулевое значение, пока статус != success.
	PaidAt time.Time
	// AmountPaidMinor — снимок total_amount заказа на момент подтверждения;
	// имеет смысл только при статусе success.
	AmountPaidMinor int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if !p.Method.Valid() {
		errs = append(errs, ErrInvalidPaymentMethod)
	}
	if !p.Status.Valid() {
		errs = append(errs, ErrInvalidPaymentStatus)
	}
	if p.AmountPaidMinor < 0 {
		errs = append(errs, ErrPaymentAmountNegative)
	}

	return errs
}

// MarkSuccess переводит платёж в success: назначает transaction ID, только если
// он ещё не назначен, и фиксирует дату и снимок суммы заказа.
func (p *Payment) MarkSuccess(transactionID string, amountMinor int64, at time.Time) {
	if p.TransactionID == "" {
		p.TransactionID = transactionID
	}
	p.Status = PaymentStatusSuccess
	p.PaidAt = at
	p.AmountPaidMinor = amountMinor
	p.UpdatedAt = at
}

// MarkNotSuccess переводит платёж в pending/failed и сбрасывает дату и сумму.
// TransactionID намеренно сохраняется: однажды назначенный идентификатор
// транзакции неизменен независимо от дальнейших смен статуса.
func (p *Payment) MarkNotSuccess(status PaymentStatus, at time.Time) {
	p.Status = status
	p.PaidAt = time.Time{}
	p.AmountPaidMinor = 0
	p.UpdatedAt = at
}
