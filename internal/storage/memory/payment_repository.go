package memory

import (
	"time"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

// paymentRepository — in-memory реализация PaymentRepository поверх общего Store.
type paymentRepository struct {
	store *Store
}

// NewPaymentRepository возвращает in-memory репозиторий платежей.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{store: store}
}

// Create сохраняет платёж, соблюдая инвариант "ровно один платёж на заказ".
func (r *paymentRepository) Create(payment domain.Payment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[payment.OrderID]; !ok {
		return domain.ErrOrderNotFound
	}
	if _, ok := s.paymentByOrder[payment.OrderID]; ok {
		return domain.ErrDuplicatePayment
	}
	if taken := s.transactionIDTaken(payment.TransactionID, payment.ID); taken {
		return domain.ErrTransactionIDTaken
	}

	s.payments[payment.ID] = payment
	s.paymentByOrder[payment.OrderID] = payment.ID
	return nil
}

// Get возвращает платёж или ErrPaymentNotFound.
func (r *paymentRepository) Get(id string) (domain.Payment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// GetByOrder возвращает платёж заказа или ErrPaymentNotFound.
func (r *paymentRepository) GetByOrder(orderID string) (domain.Payment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	paymentID, ok := s.paymentByOrder[orderID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return s.payments[paymentID], nil
}

// Update перезаписывает платёж, проверяя уникальность transaction ID.
func (r *paymentRepository) Update(payment domain.Payment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[payment.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	if taken := s.transactionIDTaken(payment.TransactionID, payment.ID); taken {
		return domain.ErrTransactionIDTaken
	}
	s.payments[payment.ID] = payment
	return nil
}

// MarkSuccess переводит платёж в success под общей блокировкой: transaction ID
// назначается, только если его ещё нет, сумма снимается с текущего
// total_amount заказа в той же критической секции.
func (r *paymentRepository) MarkSuccess(paymentID, transactionID string, at time.Time) (domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[paymentID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	order, ok := s.orders[payment.OrderID]
	if !ok {
		return domain.Payment{}, domain.ErrOrderNotFound
	}
	if payment.TransactionID == "" && s.transactionIDTaken(transactionID, paymentID) {
		return domain.Payment{}, domain.ErrTransactionIDTaken
	}

	payment.MarkSuccess(transactionID, order.TotalAmountMinor, at)
	s.payments[paymentID] = payment
	return payment, nil
}

// Confirm выполняет составную операцию под общей блокировкой: платёж в success,
// заказ в shipped, запись журнала "shipped". Сумма платежа снимается с
// текущего total_amount заказа в той же критической секции.
func (r *paymentRepository) Confirm(orderID, transactionID string, at time.Time) (domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	paymentID, ok := s.paymentByOrder[orderID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	payment := s.payments[paymentID]
	if payment.Status == domain.PaymentStatusSuccess {
		return domain.Payment{}, domain.ErrPaymentAlreadyConfirmed
	}
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Payment{}, domain.ErrOrderNotFound
	}
	if payment.TransactionID == "" && s.transactionIDTaken(transactionID, paymentID) {
		return domain.Payment{}, domain.ErrTransactionIDTaken
	}

	payment.MarkSuccess(transactionID, order.TotalAmountMinor, at)
	s.payments[paymentID] = payment

	order.Status = domain.OrderStatusShipped
	order.UpdatedAt = at
	s.orders[orderID] = order
	s.history = append(s.history, domain.StatusChange{
		OrderID:   orderID,
		Status:    domain.OrderStatusShipped,
		ChangedAt: at,
	})

	return payment, nil
}

// transactionIDTaken проверяет занятость transaction ID другим платежом.
// Вызывается под блокировкой.
func (s *Store) transactionIDTaken(transactionID, exceptPaymentID string) bool {
	if transactionID == "" {
		return false
	}
	for id, payment := range s.payments {
		if id != exceptPaymentID && payment.TransactionID == transactionID {
			return true
		}
	}
	return false
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
