package session

import (
	"sync"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// SlotFunc returns the persistence slot for a session's cart.
type SlotFunc func(sessionID string) (cart.Slot, error)

// ReleaseFunc is told when a session leaves memory and whether its cart
// was empty at that point.
type ReleaseFunc func(sessionID string, emptyCart bool)

type Dependencies struct {
	Slots         SlotFunc
	Release       ReleaseFunc
	Orders        checkout.OrderStore
	Notifier      checkout.Notifier
	Renderer      checkout.ConfirmationRenderer
	Pricing       pricing.Policy
	NotifyTimeout time.Duration
	Log           *logger.Logger
}

// NewFactory builds sessions whose cart is restored from its slot and whose
// pipeline reads and clears that same cart.
func NewFactory(deps Dependencies) Factory {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return func(id string) (*Session, error) {
		slot, err := deps.Slots(id)
		if err != nil {
			return nil, err
		}
		sessionLog := log.With("session_id", id)
		store := cart.NewStore(slot, sessionLog)

		var opts []checkout.Option
		if deps.NotifyTimeout > 0 {
			opts = append(opts, checkout.WithNotifyTimeout(deps.NotifyTimeout))
		}
		pipeline := checkout.NewPipeline(store, deps.Orders, deps.Notifier, deps.Renderer, deps.Pricing, sessionLog, opts...)

		s := &Session{ID: id, Cart: store, Checkout: pipeline}
		if deps.Release != nil {
			s.release = func() { deps.Release(id, store.ItemCount() == 0) }
		}
		return s, nil
	}
}

// MemorySlotPool keeps one in-process slot per session. A slot is dropped
// when its session leaves memory with an empty cart; one holding items is
// kept for ttl after release so the cart survives eviction.
type MemorySlotPool struct {
	mu        sync.Mutex
	slots     map[string]*pooledSlot
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type pooledSlot struct {
	slot *cart.MemorySlot
	// zero while a live session holds the slot
	releasedAt time.Time
}

func NewMemorySlotPool(ttl time.Duration) *MemorySlotPool {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &MemorySlotPool{
		slots: make(map[string]*pooledSlot),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Open is a SlotFunc.
func (p *MemorySlotPool) Open(id string) (cart.Slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.slots[id]
	if !ok {
		e = &pooledSlot{slot: cart.NewMemorySlot(nil)}
		p.slots[id] = e
	}
	e.releasedAt = time.Time{}
	return e.slot, nil
}

// Release is a ReleaseFunc.
func (p *MemorySlotPool) Release(id string, emptyCart bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if e, ok := p.slots[id]; ok {
		if emptyCart {
			delete(p.slots, id)
		} else {
			e.releasedAt = now
		}
	}
	if now.Sub(p.lastSweep) >= CleanupInterval {
		p.sweepLocked(now)
	}
}

// Prune drops released slots older than the ttl and reports how many went.
func (p *MemorySlotPool) Prune() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sweepLocked(p.now())
}

func (p *MemorySlotPool) sweepLocked(now time.Time) int {
	p.lastSweep = now
	pruned := 0
	for id, e := range p.slots {
		if !e.releasedAt.IsZero() && now.Sub(e.releasedAt) >= p.ttl {
			delete(p.slots, id)
			pruned++
		}
	}
	return pruned
}

func (p *MemorySlotPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

func FileSlots(dir string) SlotFunc {
	return func(id string) (cart.Slot, error) {
		return cart.NewFileSlot(dir, id)
	}
}

func RedisSlots(client redis.Cmdable, ttl time.Duration) SlotFunc {
	return func(id string) (cart.Slot, error) {
		return cart.NewRedisSlot(client, id, ttl), nil
	}
}
