package payment

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
	"github.com/vladislavdragonenkov/kuborder/internal/id"
	"github.com/vladislavdragonenkov/kuborder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/kuborder/internal/metrics"
)

// Service описывает операции над платежами заказов.
type Service interface {
	AttachPayment(orderID string, method domain.PaymentMethod, status domain.PaymentStatus) (domain.Payment, error)
	GetPayment(paymentID string) (domain.Payment, error)
	GetByOrder(orderID string) (domain.Payment, error)
	SetStatus(paymentID string, status domain.PaymentStatus) (domain.Payment, error)
	ConfirmPayment(orderID string) (domain.Payment, error)
}

// service реализует платёжные операции поверх PaymentRepository.
type service struct {
	payments domain.PaymentRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.CoreMetrics
}

// NewService создаёт рабочий экземпляр платёжного сервиса.
func NewService(
	payments domain.PaymentRepository,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "payment")
	}
	return &service{
		payments: payments,
		orders:   orders,
		outbox:   outbox,
		logger:   logger,
		metrics:  metrics.NewCoreMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	payments domain.PaymentRepository,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "payment")
	}
	return &service{
		payments: payments,
		orders:   orders,
		outbox:   outbox,
		logger:   logger,
	}
}

// AttachPayment прикрепляет платёж к заказу; на заказ допускается ровно один
// платёж. Пустой статус трактуется как pending. Прикрепление сразу в статусе
// success назначает transaction ID и фиксирует снимок текущей суммы заказа.
func (s *service) AttachPayment(orderID string, method domain.PaymentMethod, status domain.PaymentStatus) (domain.Payment, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("attach_payment", time.Since(start))
		}
	}()

	if orderID == "" {
		return domain.Payment{}, domain.ErrOrderIDRequired
	}
	if !method.Valid() {
		return domain.Payment{}, domain.ErrInvalidPaymentMethod
	}
	if status == "" {
		status = domain.PaymentStatusPending
	}
	if !status.Valid() {
		return domain.Payment{}, domain.ErrInvalidPaymentStatus
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Payment{}, err
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Method:    method,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == domain.PaymentStatusFailed {
		payment.Status = domain.PaymentStatusFailed
	}

	if status != domain.PaymentStatusSuccess {
		if err := s.payments.Create(payment); err != nil {
			return domain.Payment{}, err
		}
	} else {
		// Успех при создании: transaction ID подбирается с повторами на
		// случай коллизии уникального констрейнта.
		err = domain.ErrTransactionIDTaken
		for attempt := 1; attempt <= id.DefaultMaxAttempts && errors.Is(err, domain.ErrTransactionIDTaken); attempt++ {
			candidate := payment
			candidate.MarkSuccess(id.TransactionID(), order.TotalAmountMinor, now)

			err = s.payments.Create(candidate)
			if err == nil {
				payment = candidate
				break
			}
			if errors.Is(err, domain.ErrTransactionIDTaken) && s.metrics != nil {
				s.metrics.RecordIDCollision("transaction")
			}
		}
		if errors.Is(err, domain.ErrTransactionIDTaken) {
			return domain.Payment{}, domain.ErrIDSpaceExhausted
		}
		if err != nil {
			return domain.Payment{}, err
		}
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentAttached()
	}
	s.logger.WithFields(log.Fields{
		"order_id":   orderID,
		"payment_id": payment.ID,
		"method":     method,
		"status":     payment.Status,
	}).Info("payment attached to order")

	s.emitEvent(payment, kafka.EventTypePaymentAttached, map[string]interface{}{
		"method": string(method),
	})

	return payment, nil
}

// GetPayment возвращает платёж по идентификатору.
func (s *service) GetPayment(paymentID string) (domain.Payment, error) {
	return s.payments.Get(paymentID)
}

// GetByOrder возвращает платёж заказа.
func (s *service) GetByOrder(orderID string) (domain.Payment, error) {
	return s.payments.GetByOrder(orderID)
}

// SetStatus переводит платёж в заданный статус. Переход в success назначает
// transaction ID (если ещё не назначен) и снимок текущей суммы заказа; уход из
// success сбрасывает дату и сумму, но сохраняет однажды назначенный
// transaction ID.
func (s *service) SetStatus(paymentID string, status domain.PaymentStatus) (domain.Payment, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("set_payment_status", time.Since(start))
		}
	}()

	if !status.Valid() {
		return domain.Payment{}, domain.ErrInvalidPaymentStatus
	}

	payment, err := s.payments.Get(paymentID)
	if err != nil {
		return domain.Payment{}, err
	}

	now := time.Now().UTC()

	if status != domain.PaymentStatusSuccess {
		payment.MarkNotSuccess(status, now)
		if err := s.payments.Update(payment); err != nil {
			return domain.Payment{}, err
		}
	} else {
		// Снимок суммы и назначение transaction ID выполняются хранилищем в
		// одной транзакции с переводом статуса.
		err = domain.ErrTransactionIDTaken
		for attempt := 1; attempt <= id.DefaultMaxAttempts && errors.Is(err, domain.ErrTransactionIDTaken); attempt++ {
			payment, err = s.payments.MarkSuccess(paymentID, id.TransactionID(), now)
			if errors.Is(err, domain.ErrTransactionIDTaken) && s.metrics != nil {
				s.metrics.RecordIDCollision("transaction")
			}
		}
		if errors.Is(err, domain.ErrTransactionIDTaken) {
			return domain.Payment{}, domain.ErrIDSpaceExhausted
		}
		if err != nil {
			return domain.Payment{}, err
		}
	}

	s.logger.WithFields(log.Fields{
		"payment_id": paymentID,
		"order_id":   payment.OrderID,
		"status":     status,
	}).Info("payment status changed")

	s.emitEvent(payment, kafka.EventTypePaymentStatusChanged, nil)

	return payment, nil
}

// ConfirmPayment подтверждает платёж заказа: одной транзакцией платёж
// переводится в success со снимком суммы заказа, заказ переводится в shipped
// и дописывается запись журнала. Уже подтверждённый платёж возвращает
// ErrPaymentAlreadyConfirmed.
func (s *service) ConfirmPayment(orderID string) (domain.Payment, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("confirm_payment", time.Since(start))
		}
	}()

	now := time.Now().UTC()

	// Статус заказа до подтверждения нужен метрикам; отсутствие заказа
	// диагностирует Confirm.
	prevStatus := domain.OrderStatusPending
	if order, err := s.orders.Get(orderID); err == nil {
		prevStatus = order.Status
	}

	var (
		payment domain.Payment
		err     error
	)
	err = domain.ErrTransactionIDTaken
	for attempt := 1; attempt <= id.DefaultMaxAttempts && errors.Is(err, domain.ErrTransactionIDTaken); attempt++ {
		payment, err = s.payments.Confirm(orderID, id.TransactionID(), now)
		if errors.Is(err, domain.ErrTransactionIDTaken) && s.metrics != nil {
			s.metrics.RecordIDCollision("transaction")
		}
	}
	if errors.Is(err, domain.ErrTransactionIDTaken) {
		return domain.Payment{}, domain.ErrIDSpaceExhausted
	}
	if err != nil {
		return domain.Payment{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentConfirmed()
		s.metrics.RecordStatusTransition(string(prevStatus), string(domain.OrderStatusShipped))
	}
	s.logger.WithFields(log.Fields{
		"order_id":       orderID,
		"payment_id":     payment.ID,
		"transaction_id": payment.TransactionID,
	}).Info("payment confirmed, order shipped")

	s.emitEvent(payment, kafka.EventTypePaymentConfirmed, map[string]interface{}{
		"amount_paid_minor": payment.AmountPaidMinor,
		"order_status":      string(domain.OrderStatusShipped),
	})

	return payment, nil
}

// emitEvent кладёт платёжное событие в transactional outbox.
func (s *service) emitEvent(payment domain.Payment, eventType kafka.EventType, metadata map[string]interface{}) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewPaymentEvent(eventType, payment.ID, payment.OrderID,
		string(payment.Status), payment.TransactionID, metadata)
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"payment_id": payment.ID,
			"event":      eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "payment",
		AggregateID:   payment.OrderID,
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"payment_id": payment.ID,
			"event":      eventType,
		}).Error("enqueue event failed")
	}
}

var _ Service = (*service)(nil)
