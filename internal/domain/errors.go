package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего идентификатора заказа в позициях/платежах.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrProductRequired = errors.New("product_id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия total_price позиции произведению qty * unit_price.
	ErrItemTotalMismatch = errors.New("item total_price does not match qty * unit_price")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total_amount must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total_amount does not match items sum")
	// Ошибка отрицательной суммы платежа.
	ErrPaymentAmountNegative = errors.New("amount_paid must be non-negative")

	// ErrCustomerNotFound возвращается, если клиент не найден в каталоге.
	ErrCustomerNotFound = errors.New("customer does not exist")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product does not exist")
	// ErrInsufficientStock — на складе меньше единиц товара, чем запрошено.
	ErrInsufficientStock = errors.New("insufficient stock for product")
	// ErrInvalidStatus — запрошен статус заказа вне допустимого множества.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidPaymentMethod — неизвестный способ оплаты.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrInvalidPaymentStatus — неизвестный статус платежа.
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	// ErrDeliveryRequiresPayment — заказ нельзя отметить доставленным без успешной оплаты.
	ErrDeliveryRequiresPayment = errors.New("order cannot be delivered without successful payment")
	// ErrDuplicatePayment — у заказа уже есть платёж (инвариант 1:1).
	ErrDuplicatePayment = errors.New("payment for this order already exists")
	// ErrPaymentAlreadyConfirmed — платёж уже подтверждён.
	ErrPaymentAlreadyConfirmed = errors.New("payment already marked as successful")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound возвращается, если позиция заказа не найдена.
	ErrItemNotFound = errors.New("order item not found")
	// ErrPaymentNotFound возвращается, если платёж не найден.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrOrderIDTaken — кандидат идентификатора заказа уже занят; сигнал для retry.
	ErrOrderIDTaken = errors.New("order id already taken")
	// ErrTransactionIDTaken — кандидат transaction ID уже занят; сигнал для retry.
	ErrTransactionIDTaken = errors.New("transaction id already taken")
	// ErrIDSpaceExhausted — лимит попыток генерации уникального идентификатора исчерпан.
	ErrIDSpaceExhausted = errors.New("identifier space exhausted")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, является ли ошибка отсутствием заказа, позиции или платежа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

// IsInvalidReference проверяет, является ли ошибка ссылкой на неизвестную
// сущность внешнего каталога (клиент или товар).
func IsInvalidReference(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrProductNotFound)
}
