package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/observability"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/pkg/logger"
)

// Item is the product data carried by an add-to-cart action. A nil Quantity
// means "add one more"; a set Quantity replaces the line's quantity.
type Item struct {
	ID             string
	Name           string
	UnitPriceMinor int64
	Slug           string
	ImageRef       string
	Quantity       *int
}

// Qty is a helper for building an Item with an explicit quantity.
func Qty(n int) *int {
	return &n
}

// Store is the single owner of one cart. Every mutation is written through
// to the slot before the call returns.
type Store struct {
	mu    sync.Mutex
	lines []domain.CartLine
	slot  Slot
	log   *logger.Logger

	saveTimeout      time.Duration
	restoreDiscarded bool
}

func NewStore(slot Slot, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Store{
		lines:       []domain.CartLine{},
		slot:        slot,
		log:         log,
		saveTimeout: time.Second,
	}
	s.restore()
	return s
}

// NewEphemeral builds a cart that is never persisted, seeded with lines.
func NewEphemeral(lines []domain.CartLine, log *logger.Logger) *Store {
	s := NewStore(nopSlot{}, log)
	s.lines = sanitize(lines)
	return s
}

func (s *Store) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	data, err := s.slot.Load(ctx)
	if errors.Is(err, ErrSlotEmpty) {
		return
	}
	if err != nil {
		s.log.Warn("failed to load cart snapshot, starting empty", "error", err)
		return
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.log.Warn("discarding malformed cart snapshot", "error", err, "bytes", len(data))
		s.restoreDiscarded = true
		return
	}
	s.lines = sanitize(lines)
}

// sanitize drops lines that could not have been produced by Store mutations.
func sanitize(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.ID == "" || l.Quantity < 1 {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}

// AddOrMerge adds item or merges it into the existing line with the same id.
func (s *Store) AddOrMerge(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(item.ID); i >= 0 {
		line := &s.lines[i]
		if item.Quantity != nil {
			line.Quantity = max(1, *item.Quantity)
		} else {
			line.Quantity++
		}
		line.Name = item.Name
		line.UnitPriceMinor = item.UnitPriceMinor
		if item.Slug != "" {
			line.Slug = item.Slug
		}
		if item.ImageRef != "" {
			line.ImageRef = item.ImageRef
		}
	} else {
		qty := 1
		if item.Quantity != nil {
			qty = max(1, *item.Quantity)
		}
		s.lines = append(s.lines, domain.CartLine{
			ID:             item.ID,
			Name:           item.Name,
			UnitPriceMinor: item.UnitPriceMinor,
			Quantity:       qty,
			Slug:           item.Slug,
			ImageRef:       item.ImageRef,
		})
	}
	s.persistLocked("add")
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// SetQuantity removes the line for n <= 0. Unknown ids are ignored.
func (s *Store) SetQuantity(id string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		s.removeLocked(id)
		return
	}
	i := s.indexLocked(id)
	if i < 0 {
		return
	}
	s.lines[i].Quantity = max(1, n)
	s.persistLocked("set_quantity")
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = []domain.CartLine{}
	s.persistLocked("clear")
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) ItemCount() int {
	return pricing.ItemCount(s.Lines())
}

func (s *Store) SubtotalMinor() (int64, error) {
	return pricing.Subtotal(s.Lines())
}

// RestoreDiscarded reports, once, that a malformed snapshot was dropped at load.
func (s *Store) RestoreDiscarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.restoreDiscarded
	s.restoreDiscarded = false
	return v
}

func (s *Store) removeLocked(id string) {
	i := s.indexLocked(id)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.persistLocked("remove")
}

func (s *Store) indexLocked(id string) int {
	for i := range s.lines {
		if s.lines[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the full cart. Failures are logged and the in-memory
// cart stays authoritative.
func (s *Store) persistLocked(op string) {
	observability.CartMutations.WithLabelValues(op).Inc()

	data, err := json.Marshal(s.lines)
	if err != nil {
		s.log.Error("failed to marshal cart", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.slot.Save(ctx, data); err != nil {
		s.log.Warn("failed to persist cart", "op", op, "error", err)
	}
}
