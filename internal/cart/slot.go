package cart

import (
	"context"
	"errors"
	"sync"
)

// Slot is the durable key-value location holding one cart snapshot.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

var ErrSlotEmpty = errors.New("cart slot is empty")

// DefaultKey names the slot used when no session is involved.
const DefaultKey = "storefront-cart"

// MemorySlot keeps the snapshot in process memory.
type MemorySlot struct {
	mu   sync.Mutex
	data []byte
}

func NewMemorySlot(initial []byte) *MemorySlot {
	return &MemorySlot{data: initial}
}

func (m *MemorySlot) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrSlotEmpty
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemorySlot) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

// Bytes returns the last saved snapshot.
func (m *MemorySlot) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

type nopSlot struct{}

func (nopSlot) Load(context.Context) ([]byte, error) { return nil, ErrSlotEmpty }
func (nopSlot) Save(context.Context, []byte) error   { return nil }
