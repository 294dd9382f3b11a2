package domain

import "time"

// Catalog описывает взаимодействие с внешними каталогами клиентов и товаров.
// Каталоги живут в той же реляционной базе; списание стока выполняется
// хранилищем внутри транзакции добавления позиции, поэтому порт покрывает
// только чтение.
type Catalog interface {
	// CustomerExists сообщает, существует ли клиент в каталоге.
	CustomerExists(customerID string) (bool, error)
	// ProductStock возвращает признак существования товара и текущий сток.
	ProductStock(productID string) (exists bool, stock int64, err error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// DeadLetterPublisher принимает сообщения, которые не удалось доставить после
// всех повторов.
type DeadLetterPublisher interface {
	// PublishDead отправляет сообщение в dead letter queue вместе с причиной
	// отказа и числом предпринятых попыток.
	PublishDead(msg OutboxMessage, cause error, attempts int) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
