package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusShipped — оплата подтверждена, заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
)

// Valid сообщает, входит ли статус в множество допустимых значений.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// OrderID — заказ-владелец позиции.
	OrderID string
	// ProductID — внешний идентификатор товара в каталоге.
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах (пайсы).
	UnitPriceMinor int64
	// TotalPriceMinor = Qty * UnitPriceMinor; вычисляется один раз и не меняется.
	TotalPriceMinor int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate проверяет корректность полей позиции и возвращает список замечаний.
func (i *OrderItem) Validate() []error {
	var errs []error

	if i.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if i.ProductID == "" {
		errs = append(errs, ErrProductRequired)
	}
	if i.Qty <= 0 {
		errs = append(errs, ErrItemQtyInvalid)
	}
	if i.UnitPriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if i.TotalPriceMinor != int64(i.Qty)*i.UnitPriceMinor {
		errs = append(errs, ErrItemTotalMismatch)
	}

	return errs
}

// Order агрегирует состояние заказа, его позиции и производную сумму.
type Order struct {
	// ID — 7-значная числовая строка, генерируется случайным перебором.
	ID         string
	CustomerID string
	AddressID  int64
	// PlacedAt — момент оформления заказа.
	PlacedAt time.Time
	// TotalAmountMinor — производная сумма; всегда равна сумме TotalPriceMinor позиций.
	TotalAmountMinor int64
	Status           OrderStatus
	Items            []OrderItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ItemsTotalMinor возвращает сумму позиций заказа.
func (o *Order) ItemsTotalMinor() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.TotalPriceMinor
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	if o.TotalAmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}
	// Сверяем производную сумму заказа с суммой позиций.
	if o.ItemsTotalMinor() != o.TotalAmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
