package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and the seeder tool.
type Memory struct {
	mu      sync.Mutex
	orders  map[int64]*Order
	data    map[int64]*PaymentData
	notes   map[int64][]Note
	events  []MemoryEvent
	eventID int64
	noteID  int64
}

// MemoryEvent is a domain event captured by the in-memory store.
type MemoryEvent struct {
	ID      int64
	Topic   string
	OrderID int64
	Payload []byte
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		orders: make(map[int64]*Order),
		data:   make(map[int64]*PaymentData),
		notes:  make(map[int64][]Note),
	}
}

func (m *Memory) CreateOrder(_ context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; ok {
		return fmt.Errorf("store: order %d already exists", order.ID)
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	clone := *order
	clone.Items = append([]LineItem(nil), order.Items...)
	m.orders[order.ID] = &clone
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *order
	clone.Items = append([]LineItem(nil), order.Items...)
	return &clone, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id int64, status OrderStatus, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	if note != "" {
		m.appendNoteLocked(id, note)
	}
	return nil
}

func (m *Memory) MarkOrderPaid(_ context.Context, id int64, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if order.PaidAt != nil {
		return nil
	}
	now := time.Now()
	order.TransactionID = transactionID
	order.PaidAt = &now
	order.UpdatedAt = now
	return nil
}

func (m *Memory) SavePaymentData(_ context.Context, id int64, data PaymentData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	clone := data
	m.data[id] = &clone
	return nil
}

func (m *Memory) GetPaymentData(_ context.Context, id int64) (*PaymentData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *data
	return &clone, nil
}

func (m *Memory) AppendOrderNote(_ context.Context, id int64, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	m.appendNoteLocked(id, note)
	return nil
}

func (m *Memory) ListOrderNotes(_ context.Context, id int64) ([]Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Note(nil), m.notes[id]...), nil
}

func (m *Memory) InsertDomainEvent(_ context.Context, topic string, orderID int64, payload []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventID++
	m.events = append(m.events, MemoryEvent{ID: m.eventID, Topic: topic, OrderID: orderID, Payload: payload})
	return m.eventID, nil
}

// Events returns a snapshot of captured domain events.
func (m *Memory) Events() []MemoryEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MemoryEvent(nil), m.events...)
}

func (m *Memory) appendNoteLocked(id int64, note string) {
	m.noteID++
	m.notes[id] = append(m.notes[id], Note{ID: m.noteID, OrderID: id, Note: note, CreatedAt: time.Now()})
}
