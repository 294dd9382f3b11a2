package payment_test

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
	"github.com/vladislavdragonenkov/kuborder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/kuborder/internal/service/payment"
	"github.com/vladislavdragonenkov/kuborder/internal/storage/memory"
)

var transactionIDPattern = regexp.MustCompile(`^[1-9][0-9]{11}$`)

type fixture struct {
	store  *memory.Store
	orders domain.OrderRepository
	items  domain.ItemRepository
	outbox domain.OutboxRepository
	svc    payment.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.SeedCustomer("customer-1")
	store.SeedProduct("product-1", 100)

	f := &fixture{
		store:  store,
		orders: memory.NewOrderRepository(store),
		items:  memory.NewItemRepository(store),
		outbox: memory.NewOutboxRepository(),
	}
	f.svc = payment.NewServiceWithoutMetrics(memory.NewPaymentRepository(store), f.orders, f.outbox, nil)

	now := time.Now().UTC()
	if err := f.orders.Create(domain.Order{
		ID:         "1234567",
		CustomerID: "customer-1",
		AddressID:  1,
		PlacedAt:   now,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return f
}

func (f *fixture) addItem(t *testing.T, qty int32, price int64) {
	t.Helper()
	now := time.Now().UTC()
	if _, err := f.items.Add(domain.OrderItem{
		ID:              "item-" + time.Now().Format("150405.000000000"),
		OrderID:         "1234567",
		ProductID:       "product-1",
		Qty:             qty,
		UnitPriceMinor:  price,
		TotalPriceMinor: int64(qty) * price,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
}

func TestAttachPayment_Pending(t *testing.T) {
	f := newFixture(t)

	attached, err := f.svc.AttachPayment("1234567", domain.PaymentMethodUPI, "")
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if attached.Status != domain.PaymentStatusPending {
		t.Fatalf("expected pending status by default, got %s", attached.Status)
	}
	if attached.TransactionID != "" {
		t.Fatalf("pending payment must not carry transaction id, got %q", attached.TransactionID)
	}
	if !attached.PaidAt.IsZero() {
		t.Fatalf("pending payment must not have paid_at, got %v", attached.PaidAt)
	}
}

func TestAttachPayment_Validation(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.AttachPayment("", domain.PaymentMethodUPI, ""); !errors.Is(err, domain.ErrOrderIDRequired) {
		t.Fatalf("expected ErrOrderIDRequired, got %v", err)
	}
	if _, err := f.svc.AttachPayment("1234567", "cheque", ""); !errors.Is(err, domain.ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
	if _, err := f.svc.AttachPayment("1234567", domain.PaymentMethodUPI, "refunded"); !errors.Is(err, domain.ErrInvalidPaymentStatus) {
		t.Fatalf("expected ErrInvalidPaymentStatus, got %v", err)
	}
	if _, err := f.svc.AttachPayment("0000000", domain.PaymentMethodUPI, ""); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestAttachPayment_Duplicate(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.AttachPayment("1234567", domain.PaymentMethodUPI, ""); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if _, err := f.svc.AttachPayment("1234567", domain.PaymentMethodCard, ""); !errors.Is(err, domain.ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment, got %v", err)
	}
}

func TestAttachPayment_SuccessAssignsTransactionAndSnapshot(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, 3, 4999)

	attached, err := f.svc.AttachPayment("1234567", domain.PaymentMethodCard, domain.PaymentStatusSuccess)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if attached.Status != domain.PaymentStatusSuccess {
		t.Fatalf("expected success status, got %s", attached.Status)
	}
	if !transactionIDPattern.MatchString(attached.TransactionID) {
		t.Fatalf("expected 12-digit transaction id, got %q", attached.TransactionID)
	}
	if attached.AmountPaidMinor != 14997 {
		t.Fatalf("expected snapshot of order total 14997, got %d", attached.AmountPaidMinor)
	}
	if attached.PaidAt.IsZero() {
		t.Fatal("expected paid_at to be set")
	}
}

func TestSetStatus_TransactionIDImmutable(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, 2, 500)

	attached, err := f.svc.AttachPayment("1234567", domain.PaymentMethodUPI, domain.PaymentStatusSuccess)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	firstTxn := attached.TransactionID

	failed, err := f.svc.SetStatus(attached.ID, domain.PaymentStatusFailed)
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if failed.Status != domain.PaymentStatusFailed {
		t.Fatalf("expected failed status, got %s", failed.Status)
	}
	if failed.TransactionID != firstTxn {
		t.Fatalf("transaction id must survive status change: %q != %q", failed.TransactionID, firstTxn)
	}
	if !failed.PaidAt.IsZero() || failed.AmountPaidMinor != 0 {
		t.Fatalf("failed payment must clear paid_at and amount, got %v / %d", failed.PaidAt, failed.AmountPaidMinor)
	}

	back, err := f.svc.SetStatus(attached.ID, domain.PaymentStatusSuccess)
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if back.TransactionID != firstTxn {
		t.Fatalf("transaction id must never be regenerated: %q != %q", back.TransactionID, firstTxn)
	}
	if back.AmountPaidMinor != 1000 {
		t.Fatalf("expected re-snapshotted amount 1000, got %d", back.AmountPaidMinor)
	}
}

func TestSetStatus_Validation(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.SetStatus("no-such-payment", domain.PaymentStatusFailed); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}

	attached, err := f.svc.AttachPayment("1234567", domain.PaymentMethodUPI, "")
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if _, err := f.svc.SetStatus(attached.ID, "refunded"); !errors.Is(err, domain.ErrInvalidPaymentStatus) {
		t.Fatalf("expected ErrInvalidPaymentStatus, got %v", err)
	}
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, 3, 4999)

	if _, err := f.svc.AttachPayment("1234567", domain.PaymentMethodNetBanking, ""); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	confirmed, err := f.svc.ConfirmPayment("1234567")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != domain.PaymentStatusSuccess {
		t.Fatalf("expected success, got %s", confirmed.Status)
	}
	if !transactionIDPattern.MatchString(confirmed.TransactionID) {
		t.Fatalf("expected 12-digit transaction id, got %q", confirmed.TransactionID)
	}
	if confirmed.AmountPaidMinor != 14997 {
		t.Fatalf("expected snapshot 14997, got %d", confirmed.AmountPaidMinor)
	}

	order, err := f.orders.Get("1234567")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("expected order shipped after confirm, got %s", order.Status)
	}

	if _, err := f.svc.ConfirmPayment("1234567"); !errors.Is(err, domain.ErrPaymentAlreadyConfirmed) {
		t.Fatalf("expected ErrPaymentAlreadyConfirmed, got %v", err)
	}
}

func TestConfirmPayment_NoPayment(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.ConfirmPayment("1234567"); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestGetByOrder(t *testing.T) {
	f := newFixture(t)

	attached, err := f.svc.AttachPayment("1234567", domain.PaymentMethodCashOnDelivery, "")
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	byOrder, err := f.svc.GetByOrder("1234567")
	if err != nil {
		t.Fatalf("get by order failed: %v", err)
	}
	if byOrder.ID != attached.ID {
		t.Fatalf("expected payment %s, got %s", attached.ID, byOrder.ID)
	}
}

func TestConfirmPayment_TypedOutboxEvent(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, 3, 4999)

	if _, err := f.svc.AttachPayment("1234567", domain.PaymentMethodCard, ""); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	confirmed, err := f.svc.ConfirmPayment("1234567")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull outbox failed: %v", err)
	}

	var event kafka.PaymentEvent
	found := false
	for _, msg := range pending {
		if msg.EventType != string(kafka.EventTypePaymentConfirmed) {
			continue
		}
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			t.Fatalf("unmarshal event payload failed: %v", err)
		}
		found = true
	}
	if !found {
		t.Fatal("expected payment.confirmed event in outbox")
	}

	if event.PaymentID != confirmed.ID {
		t.Fatalf("expected payment id %s, got %s", confirmed.ID, event.PaymentID)
	}
	if event.OrderID != "1234567" {
		t.Fatalf("expected order id 1234567, got %s", event.OrderID)
	}
	if event.Status != string(domain.PaymentStatusSuccess) {
		t.Fatalf("expected success status in event, got %q", event.Status)
	}
	if event.TransactionID != confirmed.TransactionID {
		t.Fatalf("expected transaction id %s, got %s", confirmed.TransactionID, event.TransactionID)
	}
}
