package domain

import "time"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ и в той же транзакции добавляет начальную
	// запись журнала статусов. Возвращает ErrOrderIDTaken при коллизии ID.
	Create(order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// List возвращает заказы, новые первыми, с опциональным ограничением на количество.
	List(limit int) ([]Order, error)
	// Delete удаляет заказ вместе с позициями, платежом и журналом статусов.
	Delete(id string) error
	// TransitionStatus атомарно обновляет статус заказа и добавляет запись
	// журнала; возвращает заказ после перехода. Переход в delivered проверяет
	// наличие успешного платежа в той же транзакции и возвращает
	// ErrDeliveryRequiresPayment, если его нет.
	TransitionStatus(orderID string, status OrderStatus, at time.Time) (Order, error)
}

// ItemRepository описывает требования к хранилищу позиций заказа.
type ItemRepository interface {
	// Add выполняет одну транзакцию: блокировка строки товара, проверка и
	// списание стока, вставка позиции, пересчёт total_amount заказа.
	// Возвращает ErrProductNotFound, ErrInsufficientStock или ErrOrderNotFound.
	Add(item OrderItem) (OrderItem, error)
	// Get возвращает позицию или ErrItemNotFound.
	Get(id string) (OrderItem, error)
	// ListByOrder возвращает позиции заказа в порядке добавления.
	ListByOrder(orderID string) ([]OrderItem, error)
	// Remove атомарно удаляет позицию и пересчитывает total_amount заказа.
	// Сток товара при удалении не восстанавливается.
	Remove(id string) error
}

// PaymentRepository описывает требования к хранилищу платежей.
type PaymentRepository interface {
	// Create сохраняет платёж. Возвращает ErrDuplicatePayment, если у заказа
	// уже есть платёж, ErrOrderNotFound при отсутствии заказа и
	// ErrTransactionIDTaken при коллизии transaction ID.
	Create(payment Payment) error
	// Get возвращает платёж или ErrPaymentNotFound.
	Get(id string) (Payment, error)
	// GetByOrder возвращает платёж заказа или ErrPaymentNotFound.
	GetByOrder(orderID string) (Payment, error)
	// Update перезаписывает платёж. Возвращает ErrTransactionIDTaken при
	// коллизии transaction ID.
	Update(payment Payment) error
	// MarkSuccess одной транзакцией переводит платёж в success: transaction ID
	// назначается, только если его ещё нет, сумма снимается с total_amount
	// заказа, прочитанного в той же транзакции. Возвращает платёж после
	// перехода.
	MarkSuccess(paymentID, transactionID string, at time.Time) (Payment, error)
	// Confirm выполняет одну транзакцию: платёж переводится в success
	// (transaction ID назначается, только если его ещё нет, сумма снимается с
	// текущего total_amount заказа), заказ переводится в shipped, в журнал
	// добавляется запись "shipped". Возвращает платёж после подтверждения.
	Confirm(orderID, transactionID string, at time.Time) (Payment, error)
}

// HistoryRepository хранит append-only журнал переходов статуса заказа.
type HistoryRepository interface {
	Append(change StatusChange) error
	// ListByOrder возвращает переходы от старых к новым; каждый вызов
	// перечитывает журнал заново.
	ListByOrder(orderID string) ([]StatusChange, error)
}
