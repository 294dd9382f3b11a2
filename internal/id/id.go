// Пакет id генерирует кандидатов числовых идентификаторов фиксированной ширины.
// Уникальность кандидата не гарантируется: её обеспечивают unique-констрейнты
// хранилища, а вызывающая сторона повторяет генерацию при коллизии,
// ограничиваясь DefaultMaxAttempts попытками.
package id

import (
	"math/rand/v2"
	"strconv"
)

// DefaultMaxAttempts — лимит повторных попыток генерации при коллизиях.
// Пространства идентификаторов велики относительно ожидаемого объёма, поэтому
// исчерпание лимита означает деградацию, а не нормальную работу.
const DefaultMaxAttempts = 10

const (
	orderIDMin = 1_000_000
	orderIDMax = 9_999_999

	transactionIDMin = 100_000_000_000
	transactionIDMax = 999_999_999_999
)

// OrderID возвращает случайную 7-значную числовую строку — кандидат
// идентификатора заказа.
func OrderID() string {
	return strconv.FormatInt(randomInRange(orderIDMin, orderIDMax), 10)
}

// TransactionID возвращает случайную 12-значную числовую строку — кандидат
// идентификатора транзакции платежа.
func TransactionID() string {
	return strconv.FormatInt(randomInRange(transactionIDMin, transactionIDMax), 10)
}

func randomInRange(min, max int64) int64 {
	return min + rand.Int64N(max-min+1)
}
