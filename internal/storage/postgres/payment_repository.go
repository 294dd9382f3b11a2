package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

const paymentColumns = `id, order_id, method, status, transaction_id, paid_at, amount_paid_minor, created_at, updated_at`

// Create сохраняет платёж; инвариант 1:1 обеспечивает unique-констрейнт на order_id.
func (r *paymentRepository) Create(payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (
			id, order_id, method, status, transaction_id, paid_at, amount_paid_minor, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		payment.ID, payment.OrderID, string(payment.Method), string(payment.Status),
		nullString(payment.TransactionID), nullTime(payment.PaidAt), nullAmount(payment),
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "payments_order_id_key"):
			return domain.ErrDuplicatePayment
		case isUniqueViolation(err, "payments_transaction_id_key"):
			return domain.ErrTransactionIDTaken
		case isForeignKeyViolation(err):
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// Get возвращает платёж или ErrPaymentNotFound.
func (r *paymentRepository) Get(id string) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE id = $1
	`, id)
	return scanPayment(row)
}

// GetByOrder возвращает платёж заказа или ErrPaymentNotFound.
func (r *paymentRepository) GetByOrder(orderID string) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE order_id = $1
	`, orderID)
	return scanPayment(row)
}

// Update перезаписывает изменяемые поля платежа.
func (r *paymentRepository) Update(payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET method = $2,
		    status = $3,
		    transaction_id = $4,
		    paid_at = $5,
		    amount_paid_minor = $6,
		    updated_at = $7
		WHERE id = $1
	`,
		payment.ID, string(payment.Method), string(payment.Status),
		nullString(payment.TransactionID), nullTime(payment.PaidAt), nullAmount(payment),
		payment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "payments_transaction_id_key") {
			return domain.ErrTransactionIDTaken
		}
		return fmt.Errorf("update payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// MarkSuccess одной транзакцией переводит платёж в success: строки платежа и
// заказа блокируются, transaction ID назначается, только если его ещё нет,
// сумма снимается с текущего total_amount заказа.
func (r *paymentRepository) MarkSuccess(paymentID, transactionID string, at time.Time) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE id = $1
		FOR UPDATE
	`, paymentID)
	payment, err := scanPayment(row)
	if err != nil {
		return domain.Payment{}, err
	}

	var totalAmountMinor int64
	err = tx.QueryRowContext(ctx, `
		SELECT total_amount_minor FROM orders WHERE id = $1 FOR UPDATE
	`, payment.OrderID).Scan(&totalAmountMinor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrOrderNotFound
		}
		return domain.Payment{}, fmt.Errorf("lock order row: %w", err)
	}

	payment.MarkSuccess(transactionID, totalAmountMinor, at)

	if _, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $2,
		    transaction_id = $3,
		    paid_at = $4,
		    amount_paid_minor = $5,
		    updated_at = $6
		WHERE id = $1
	`,
		payment.ID, string(payment.Status), nullString(payment.TransactionID),
		nullTime(payment.PaidAt), nullAmount(payment), payment.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err, "payments_transaction_id_key") {
			err = domain.ErrTransactionIDTaken
			return domain.Payment{}, err
		}
		return domain.Payment{}, fmt.Errorf("mark payment success: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Payment{}, fmt.Errorf("commit payment success: %w", err)
	}

	return payment, nil
}

// Confirm выполняет одну транзакцию: блокирует строки платежа и заказа,
// переводит платёж в success (снимая сумму с текущего total_amount заказа),
// переводит заказ в shipped и добавляет запись журнала "shipped".
func (r *paymentRepository) Confirm(orderID, transactionID string, at time.Time) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE order_id = $1
		FOR UPDATE
	`, orderID)
	payment, err := scanPayment(row)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment.Status == domain.PaymentStatusSuccess {
		err = domain.ErrPaymentAlreadyConfirmed
		return domain.Payment{}, err
	}

	var totalAmountMinor int64
	err = tx.QueryRowContext(ctx, `
		SELECT total_amount_minor FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&totalAmountMinor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrOrderNotFound
		}
		return domain.Payment{}, fmt.Errorf("lock order row: %w", err)
	}

	payment.MarkSuccess(transactionID, totalAmountMinor, at)

	if _, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $2,
		    transaction_id = $3,
		    paid_at = $4,
		    amount_paid_minor = $5,
		    updated_at = $6
		WHERE id = $1
	`,
		payment.ID, string(payment.Status), nullString(payment.TransactionID),
		nullTime(payment.PaidAt), nullAmount(payment), payment.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err, "payments_transaction_id_key") {
			err = domain.ErrTransactionIDTaken
			return domain.Payment{}, err
		}
		return domain.Payment{}, fmt.Errorf("confirm payment: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    updated_at = $3
		WHERE id = $1
	`, orderID, string(domain.OrderStatusShipped), at); err != nil {
		return domain.Payment{}, fmt.Errorf("update order status: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO status_history (order_id, status, changed_at)
		VALUES ($1,$2,$3)
	`, orderID, string(domain.OrderStatusShipped), at); err != nil {
		return domain.Payment{}, fmt.Errorf("append status history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Payment{}, fmt.Errorf("commit payment confirm: %w", err)
	}

	return payment, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var (
		payment       domain.Payment
		method        string
		status        string
		transactionID sql.NullString
		paidAt        sql.NullTime
		amountPaid    sql.NullInt64
	)

	err := row.Scan(
		&payment.ID, &payment.OrderID, &method, &status,
		&transactionID, &paidAt, &amountPaid,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("scan payment: %w", err)
	}

	payment.Method = domain.PaymentMethod(method)
	payment.Status = domain.PaymentStatus(status)
	if transactionID.Valid {
		payment.TransactionID = transactionID.String
	}
	if paidAt.Valid {
		payment.PaidAt = paidAt.Time.UTC()
	}
	if amountPaid.Valid {
		payment.AmountPaidMinor = amountPaid.Int64
	}

	return payment, nil
}

// nullString отображает пустую строку в NULL, чтобы unique-констрейнт на
// transaction_id не срабатывал на неназначенных идентификаторах.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// nullAmount хранит amount_paid только у успешных платежей.
func nullAmount(p domain.Payment) sql.NullInt64 {
	return sql.NullInt64{Int64: p.AmountPaidMinor, Valid: p.Status == domain.PaymentStatusSuccess}
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
