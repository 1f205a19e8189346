package store

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/feral-file/ff-boxoffice/internal/domain"
)

// memoryStore is an in-process Store used by tests and local development.
// WithinTransaction takes a snapshot of the whole state and restores it when
// the callback fails, giving the same all-or-nothing semantics as the
// database transaction in the pg store. A single mutex stands in for the
// sale-state row lock, so purchases are serialized here too.
type memoryStore struct {
	mu sync.Mutex
	d  *memData
}

type memOutboxEvent struct {
	event        domain.Event
	dispatchedAt *time.Time
}

type memData struct {
	saleState   *domain.SaleState
	boxes       map[domain.BoxID]*domain.Box
	soldUnits   map[uint64]*domain.SoldUnit
	issuedItems []domain.IssuedItem
	usedNonces  map[string]time.Time
	events      []memOutboxEvent
	webhooks    []domain.WebhookEndpoint
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		d: &memData{
			boxes:      make(map[domain.BoxID]*domain.Box),
			soldUnits:  make(map[uint64]*domain.SoldUnit),
			usedNonces: make(map[string]time.Time),
		},
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		boxes:       make(map[domain.BoxID]*domain.Box, len(d.boxes)),
		soldUnits:   make(map[uint64]*domain.SoldUnit, len(d.soldUnits)),
		issuedItems: append([]domain.IssuedItem(nil), d.issuedItems...),
		usedNonces:  make(map[string]time.Time, len(d.usedNonces)),
		events:      append([]memOutboxEvent(nil), d.events...),
		webhooks:    append([]domain.WebhookEndpoint(nil), d.webhooks...),
	}
	if d.saleState != nil {
		state := *d.saleState
		c.saleState = &state
	}
	for id, box := range d.boxes {
		c.boxes[id] = copyBox(box)
	}
	for id, unit := range d.soldUnits {
		u := *unit
		u.Price = new(big.Int).Set(unit.Price)
		c.soldUnits[id] = &u
	}
	for nonce, at := range d.usedNonces {
		c.usedNonces[nonce] = at
	}
	return c
}

func copyBox(box *domain.Box) *domain.Box {
	b := *box
	b.Price = new(big.Int).Set(box.Price)
	if box.TokenContract != nil {
		addr := *box.TokenContract
		b.TokenContract = &addr
	}
	return &b
}

func (m *memoryStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.d.clone()
	if err := fn(&memTx{d: m.d}); err != nil {
		*m.d = *snapshot
		return err
	}
	return nil
}

func (m *memoryStore) InitSaleState(ctx context.Context, state *domain.SaleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).InitSaleState(ctx, state)
}

func (m *memoryStore) GetSaleState(ctx context.Context) (*domain.SaleState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).GetSaleState(ctx)
}

func (m *memoryStore) GetSaleStateForUpdate(ctx context.Context) (*domain.SaleState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).GetSaleStateForUpdate(ctx)
}

func (m *memoryStore) SaveSaleState(ctx context.Context, state *domain.SaleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).SaveSaleState(ctx, state)
}

func (m *memoryStore) CreateBox(ctx context.Context, box *domain.Box) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).CreateBox(ctx, box)
}

func (m *memoryStore) GetBox(ctx context.Context, id domain.BoxID) (*domain.Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).GetBox(ctx, id)
}

func (m *memoryStore) GetBoxForUpdate(ctx context.Context, id domain.BoxID) (*domain.Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).GetBoxForUpdate(ctx, id)
}

func (m *memoryStore) UpdateBox(ctx context.Context, box *domain.Box) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).UpdateBox(ctx, box)
}

func (m *memoryStore) ListBoxes(ctx context.Context) ([]domain.Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).ListBoxes(ctx)
}

func (m *memoryStore) IsNonceUsed(ctx context.Context, nonce *big.Int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).IsNonceUsed(ctx, nonce)
}

func (m *memoryStore) ConsumeNonce(ctx context.Context, nonce *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).ConsumeNonce(ctx, nonce)
}

func (m *memoryStore) CreateSoldUnit(ctx context.Context, unit *domain.SoldUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).CreateSoldUnit(ctx, unit)
}

func (m *memoryStore) GetSoldUnit(ctx context.Context, id uint64) (*domain.SoldUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).GetSoldUnit(ctx, id)
}

func (m *memoryStore) CreateIssuedItem(ctx context.Context, item *domain.IssuedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).CreateIssuedItem(ctx, item)
}

func (m *memoryStore) ListIssuedItemsBySoldUnit(ctx context.Context, soldUnitID uint64) ([]domain.IssuedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).ListIssuedItemsBySoldUnit(ctx, soldUnitID)
}

func (m *memoryStore) StageEvent(ctx context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).StageEvent(ctx, event)
}

func (m *memoryStore) ListPendingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).ListPendingEvents(ctx, limit)
}

func (m *memoryStore) MarkEventDispatched(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).MarkEventDispatched(ctx, eventID)
}

func (m *memoryStore) CreateWebhookEndpoint(ctx context.Context, endpoint *domain.WebhookEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).CreateWebhookEndpoint(ctx, endpoint)
}

func (m *memoryStore) ListWebhookEndpoints(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.d}).ListWebhookEndpoints(ctx)
}

// memTx is the transactional view of the memory store. The caller already
// holds the store mutex; a failed transaction is undone by the snapshot in
// WithinTransaction.
type memTx struct {
	d *memData
}

// WithinTransaction on an open transaction just runs the callback; the
// outer snapshot still covers it.
func (t *memTx) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memTx) InitSaleState(ctx context.Context, state *domain.SaleState) error {
	if t.d.saleState != nil {
		return nil
	}
	s := *state
	s.UpdatedAt = time.Now().UTC()
	t.d.saleState = &s
	return nil
}

func (t *memTx) GetSaleState(ctx context.Context) (*domain.SaleState, error) {
	if t.d.saleState == nil {
		return nil, errors.New("sale state not initialized")
	}
	state := *t.d.saleState
	return &state, nil
}

func (t *memTx) GetSaleStateForUpdate(ctx context.Context) (*domain.SaleState, error) {
	return t.GetSaleState(ctx)
}

func (t *memTx) SaveSaleState(ctx context.Context, state *domain.SaleState) error {
	s := *state
	s.UpdatedAt = time.Now().UTC()
	t.d.saleState = &s
	return nil
}

func (t *memTx) CreateBox(ctx context.Context, box *domain.Box) error {
	if _, ok := t.d.boxes[box.ID]; ok {
		return domain.ErrBoxAlreadyExists
	}
	t.d.boxes[box.ID] = copyBox(box)
	return nil
}

func (t *memTx) GetBox(ctx context.Context, id domain.BoxID) (*domain.Box, error) {
	box, ok := t.d.boxes[id]
	if !ok {
		return nil, nil
	}
	return copyBox(box), nil
}

func (t *memTx) GetBoxForUpdate(ctx context.Context, id domain.BoxID) (*domain.Box, error) {
	return t.GetBox(ctx, id)
}

func (t *memTx) UpdateBox(ctx context.Context, box *domain.Box) error {
	existing, ok := t.d.boxes[box.ID]
	if !ok {
		return domain.ErrBoxNotFound
	}
	existing.Price = new(big.Int).Set(box.Price)
	existing.Enabled = box.Enabled
	existing.RequiresSignature = box.RequiresSignature
	existing.Supply = box.Supply
	return nil
}

func (t *memTx) ListBoxes(ctx context.Context) ([]domain.Box, error) {
	boxes := make([]domain.Box, 0, len(t.d.boxes))
	for _, box := range t.d.boxes {
		boxes = append(boxes, *copyBox(box))
	}
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].ID < boxes[j].ID })
	return boxes, nil
}

func (t *memTx) IsNonceUsed(ctx context.Context, nonce *big.Int) (bool, error) {
	_, ok := t.d.usedNonces[nonce.String()]
	return ok, nil
}

func (t *memTx) ConsumeNonce(ctx context.Context, nonce *big.Int) error {
	key := nonce.String()
	if _, ok := t.d.usedNonces[key]; ok {
		return domain.ErrNonceAlreadyUsed
	}
	t.d.usedNonces[key] = time.Now().UTC()
	return nil
}

func (t *memTx) CreateSoldUnit(ctx context.Context, unit *domain.SoldUnit) error {
	u := *unit
	u.Price = new(big.Int).Set(unit.Price)
	t.d.soldUnits[u.ID] = &u
	return nil
}

func (t *memTx) GetSoldUnit(ctx context.Context, id uint64) (*domain.SoldUnit, error) {
	unit, ok := t.d.soldUnits[id]
	if !ok {
		return nil, nil
	}
	u := *unit
	u.Price = new(big.Int).Set(unit.Price)
	return &u, nil
}

func (t *memTx) CreateIssuedItem(ctx context.Context, item *domain.IssuedItem) error {
	t.d.issuedItems = append(t.d.issuedItems, *item)
	return nil
}

func (t *memTx) ListIssuedItemsBySoldUnit(ctx context.Context, soldUnitID uint64) ([]domain.IssuedItem, error) {
	var items []domain.IssuedItem
	for _, item := range t.d.issuedItems {
		if item.SoldUnitID == soldUnitID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (t *memTx) StageEvent(ctx context.Context, event *domain.Event) error {
	t.d.events = append(t.d.events, memOutboxEvent{event: *event})
	return nil
}

func (t *memTx) ListPendingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	var events []domain.Event
	for _, e := range t.d.events {
		if e.dispatchedAt == nil {
			events = append(events, e.event)
			if len(events) == limit {
				break
			}
		}
	}
	return events, nil
}

func (t *memTx) MarkEventDispatched(ctx context.Context, eventID string) error {
	for i := range t.d.events {
		if t.d.events[i].event.ID == eventID {
			now := time.Now().UTC()
			t.d.events[i].dispatchedAt = &now
			return nil
		}
	}
	return nil
}

func (t *memTx) CreateWebhookEndpoint(ctx context.Context, endpoint *domain.WebhookEndpoint) error {
	t.d.webhooks = append(t.d.webhooks, *endpoint)
	return nil
}

func (t *memTx) ListWebhookEndpoints(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	return append([]domain.WebhookEndpoint(nil), t.d.webhooks...), nil
}
