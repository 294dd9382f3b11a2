package domain

import "time"

// StatusChange описывает одну запись в append-only журнале переходов статуса заказа.
// Записи никогда не обновляются и не удаляются (кроме каскада при удалении заказа).
type StatusChange struct {
	OrderID   string
	Status    OrderStatus
	ChangedAt time.Time
}
