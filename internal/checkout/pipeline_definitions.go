package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/google/uuid"
)

type CartStore interface {
	Lines() []domain.CartLine
	Clear()
}

type OrderStore interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest, orderID string) (*domain.Order, error)
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, to, orderID, html string) error
}

type ConfirmationRenderer interface {
	RenderConfirmation(order *domain.Order) (string, error)
}

// Result describes a recorded order. NotificationErr is set when the
// confirmation email could not be sent; the order stands regardless.
type Result struct {
	OrderID          string
	ConfirmationPath string
	Order            *domain.Order
	NotificationErr  error
}

// Pipeline turns one cart plus a checkout form into an order. A pipeline
// belongs to a single form instance and runs at most one submission at a time.
type Pipeline struct {
	cart     CartStore
	orders   OrderStore
	notifier Notifier
	renderer ConfirmationRenderer
	pricing  pricing.Policy
	log      *logger.Logger

	newOrderID    func() string
	notifyTimeout time.Duration

	inFlight atomic.Bool

	mu      sync.Mutex
	status  domain.CheckoutStatus
	failure domain.FailureKind
}

type Option func(*Pipeline)

func WithOrderIDGenerator(fn func() string) Option {
	return func(p *Pipeline) { p.newOrderID = fn }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.notifyTimeout = d }
}

func NewPipeline(
	cart CartStore,
	orders OrderStore,
	notifier Notifier,
	renderer ConfirmationRenderer,
	policy pricing.Policy,
	log *logger.Logger,
	opts ...Option) *Pipeline {

	if log == nil {
		log = logger.NewNop()
	}
	p := &Pipeline{
		cart:          cart,
		orders:        orders,
		notifier:      notifier,
		renderer:      renderer,
		pricing:       policy,
		log:           log,
		newOrderID:    uuid.NewString,
		notifyTimeout: 10 * time.Second,
		status:        domain.CheckoutStatusIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) State() (domain.CheckoutStatus, domain.FailureKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.failure
}

func (p *Pipeline) Status() domain.CheckoutStatus {
	s, _ := p.State()
	return s
}

func (p *Pipeline) InFlight() bool {
	return p.inFlight.Load()
}

// Reset returns the pipeline to idle, as when the customer navigates away.
// It is ignored while a submission is running.
func (p *Pipeline) Reset() bool {
	if p.inFlight.Load() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = domain.CheckoutStatusIdle
	p.failure = domain.FailureNone
	return true
}

func (p *Pipeline) transition(next domain.CheckoutStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.status.CanTransitionTo(next) {
		return illegalTransition(p.status, next)
	}
	p.status = next
	if next != domain.CheckoutStatusFailed {
		p.failure = domain.FailureNone
	}
	return nil
}

func (p *Pipeline) fail(kind domain.FailureKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = domain.CheckoutStatusFailed
	p.failure = kind
}
