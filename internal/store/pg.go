package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance. The db should be
// opened with gorm.Config{TranslateError: true} so duplicate-key violations
// surface as gorm.ErrDuplicatedKey.
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the database schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.SaleState{},
		&schema.Box{},
		&schema.SoldUnit{},
		&schema.IssuedItem{},
		&schema.UsedNonce{},
		&schema.OutboxEvent{},
		&schema.WebhookEndpoint{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		normalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// normalizeConnectionPoolSettings applies defaults and clamps pool settings
// into safe values. database/sql treats MaxOpenConns=0 as "unlimited" and
// MaxIdleConns=0 as "no idle connections", so zeros get explicit defaults.
func normalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// WithinTransaction runs fn inside a database transaction
func (s *pgStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

// InitSaleState creates the singleton sale-state row if absent
func (s *pgStore) InitSaleState(ctx context.Context, state *domain.SaleState) error {
	row := saleStateToSchema(state)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to init sale state: %w", err)
	}
	return nil
}

// GetSaleState retrieves the sale state
func (s *pgStore) GetSaleState(ctx context.Context) (*domain.SaleState, error) {
	var row schema.SaleState
	err := s.db.WithContext(ctx).Where("id = ?", schema.SaleStateID).First(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get sale state: %w", err)
	}
	return saleStateFromSchema(&row), nil
}

// GetSaleStateForUpdate retrieves the sale state under a row lock
func (s *pgStore) GetSaleStateForUpdate(ctx context.Context) (*domain.SaleState, error) {
	var row schema.SaleState
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", schema.SaleStateID).
		First(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock sale state: %w", err)
	}
	return saleStateFromSchema(&row), nil
}

// SaveSaleState persists the sale state
func (s *pgStore) SaveSaleState(ctx context.Context, state *domain.SaleState) error {
	row := saleStateToSchema(state)
	row.UpdatedAt = time.Now().UTC()
	err := s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save sale state: %w", err)
	}
	return nil
}

// CreateBox stores a new box
func (s *pgStore) CreateBox(ctx context.Context, box *domain.Box) error {
	row := boxToSchema(box)
	err := s.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrBoxAlreadyExists
		}
		return fmt.Errorf("failed to create box: %w", err)
	}
	return nil
}

// GetBox retrieves a box by identifier
func (s *pgStore) GetBox(ctx context.Context, id domain.BoxID) (*domain.Box, error) {
	var row schema.Box
	err := s.db.WithContext(ctx).Where("id = ?", uint64(id)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get box: %w", err)
	}
	return boxFromSchema(&row)
}

// GetBoxForUpdate retrieves a box under a row lock
func (s *pgStore) GetBoxForUpdate(ctx context.Context, id domain.BoxID) (*domain.Box, error) {
	var row schema.Box
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", uint64(id)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock box: %w", err)
	}
	return boxFromSchema(&row)
}

// UpdateBox persists mutable box fields
func (s *pgStore) UpdateBox(ctx context.Context, box *domain.Box) error {
	err := s.db.WithContext(ctx).
		Model(&schema.Box{}).
		Where("id = ?", uint64(box.ID)).
		Updates(map[string]any{
			"price":              box.Price.String(),
			"enabled":            box.Enabled,
			"requires_signature": box.RequiresSignature,
			"supply":             box.Supply,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update box: %w", err)
	}
	return nil
}

// ListBoxes retrieves all boxes ordered by identifier
func (s *pgStore) ListBoxes(ctx context.Context) ([]domain.Box, error) {
	var rows []schema.Box
	err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}

	boxes := make([]domain.Box, 0, len(rows))
	for i := range rows {
		box, err := boxFromSchema(&rows[i])
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, *box)
	}
	return boxes, nil
}

// IsNonceUsed reports whether the nonce was consumed before
func (s *pgStore) IsNonceUsed(ctx context.Context, nonce *big.Int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.UsedNonce{}).
		Where("nonce = ?", nonce.String()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return count > 0, nil
}

// ConsumeNonce records the nonce as used
func (s *pgStore) ConsumeNonce(ctx context.Context, nonce *big.Int) error {
	row := schema.UsedNonce{Nonce: nonce.String(), CreatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrNonceAlreadyUsed
		}
		return fmt.Errorf("failed to consume nonce: %w", err)
	}
	return nil
}

// CreateSoldUnit stores a purchase record
func (s *pgStore) CreateSoldUnit(ctx context.Context, unit *domain.SoldUnit) error {
	row := schema.SoldUnit{
		ID:          unit.ID,
		BoxID:       uint64(unit.BoxID),
		Buyer:       unit.Buyer.Hex(),
		Price:       unit.Price.String(),
		PaymentKind: string(unit.PaymentKind),
		CreatedAt:   unit.CreatedAt,
	}
	if unit.TokenContract != nil {
		hex := unit.TokenContract.Hex()
		row.TokenContract = &hex
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to create sold unit: %w", err)
	}
	return nil
}

// GetSoldUnit retrieves a purchase record
func (s *pgStore) GetSoldUnit(ctx context.Context, id uint64) (*domain.SoldUnit, error) {
	var row schema.SoldUnit
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sold unit: %w", err)
	}

	price, ok := new(big.Int).SetString(row.Price, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored price %q for sold unit %d", row.Price, row.ID)
	}
	unit := &domain.SoldUnit{
		ID:          row.ID,
		BoxID:       domain.BoxID(row.BoxID),
		Buyer:       common.HexToAddress(row.Buyer),
		Price:       price,
		PaymentKind: domain.PaymentKind(row.PaymentKind),
		CreatedAt:   row.CreatedAt,
	}
	if row.TokenContract != nil {
		addr := common.HexToAddress(*row.TokenContract)
		unit.TokenContract = &addr
	}
	return unit, nil
}

// CreateIssuedItem stores a minted item record
func (s *pgStore) CreateIssuedItem(ctx context.Context, item *domain.IssuedItem) error {
	row := schema.IssuedItem{
		ID:         item.ID,
		SoldUnitID: item.SoldUnitID,
		Owner:      item.Owner.Hex(),
		CreatedAt:  item.CreatedAt,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to create issued item: %w", err)
	}
	return nil
}

// ListIssuedItemsBySoldUnit retrieves the items minted by one purchase
func (s *pgStore) ListIssuedItemsBySoldUnit(ctx context.Context, soldUnitID uint64) ([]domain.IssuedItem, error) {
	var rows []schema.IssuedItem
	err := s.db.WithContext(ctx).
		Where("sold_unit_id = ?", soldUnitID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list issued items: %w", err)
	}

	items := make([]domain.IssuedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.IssuedItem{
			ID:         row.ID,
			SoldUnitID: row.SoldUnitID,
			Owner:      common.HexToAddress(row.Owner),
			CreatedAt:  row.CreatedAt,
		})
	}
	return items, nil
}

// StageEvent inserts an event into the outbox
func (s *pgStore) StageEvent(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	row := schema.OutboxEvent{
		ID:        event.ID,
		Kind:      string(event.Kind),
		Payload:   datatypes.JSON(payload),
		CreatedAt: event.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to stage event: %w", err)
	}
	return nil
}

// ListPendingEvents retrieves undispatched events oldest-first
func (s *pgStore) ListPendingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	var rows []schema.OutboxEvent
	err := s.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("id asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}

	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		var payload map[string]any
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event payload %s: %w", row.ID, err)
		}
		events = append(events, domain.Event{
			ID:        row.ID,
			Kind:      domain.EventKind(row.Kind),
			CreatedAt: row.CreatedAt,
			Payload:   payload,
		})
	}
	return events, nil
}

// MarkEventDispatched records a successful delivery
func (s *pgStore) MarkEventDispatched(ctx context.Context, eventID string) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).
		Model(&schema.OutboxEvent{}).
		Where("id = ?", eventID).
		Update("dispatched_at", &now).Error
	if err != nil {
		return fmt.Errorf("failed to mark event dispatched: %w", err)
	}
	return nil
}

// CreateWebhookEndpoint registers a webhook consumer
func (s *pgStore) CreateWebhookEndpoint(ctx context.Context, endpoint *domain.WebhookEndpoint) error {
	row := schema.WebhookEndpoint{
		ID:        endpoint.ID,
		URL:       endpoint.URL,
		Secret:    endpoint.Secret,
		CreatedAt: endpoint.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create webhook endpoint: %w", err)
	}
	return nil
}

// ListWebhookEndpoints retrieves all registered webhook consumers
func (s *pgStore) ListWebhookEndpoints(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	var rows []schema.WebhookEndpoint
	err := s.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook endpoints: %w", err)
	}

	endpoints := make([]domain.WebhookEndpoint, 0, len(rows))
	for _, row := range rows {
		endpoints = append(endpoints, domain.WebhookEndpoint{
			ID:        row.ID,
			URL:       row.URL,
			Secret:    row.Secret,
			CreatedAt: row.CreatedAt,
		})
	}
	return endpoints, nil
}

func boxToSchema(box *domain.Box) schema.Box {
	row := schema.Box{
		ID:                  uint64(box.ID),
		Price:               box.Price.String(),
		MaxSupply:           box.MaxSupply,
		Supply:              box.Supply,
		Enabled:             box.Enabled,
		PaidWithToken:       box.PaidWithToken,
		RequiresSignature:   box.RequiresSignature,
		QuantityPerPurchase: box.QuantityPerPurchase,
		CreatedAt:           box.CreatedAt,
	}
	if box.TokenContract != nil {
		hex := box.TokenContract.Hex()
		row.TokenContract = &hex
	}
	return row
}

func boxFromSchema(row *schema.Box) (*domain.Box, error) {
	price, ok := new(big.Int).SetString(row.Price, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored price %q for box %d", row.Price, row.ID)
	}
	box := &domain.Box{
		ID:                  domain.BoxID(row.ID),
		Price:               price,
		MaxSupply:           row.MaxSupply,
		Supply:              row.Supply,
		Enabled:             row.Enabled,
		PaidWithToken:       row.PaidWithToken,
		RequiresSignature:   row.RequiresSignature,
		QuantityPerPurchase: row.QuantityPerPurchase,
		CreatedAt:           row.CreatedAt,
	}
	if row.TokenContract != nil {
		addr := common.HexToAddress(*row.TokenContract)
		box.TokenContract = &addr
	}
	return box, nil
}

func saleStateToSchema(state *domain.SaleState) schema.SaleState {
	return schema.SaleState{
		ID:                schema.SaleStateID,
		Paused:            state.Paused,
		PaymentAddress:    state.PaymentAddress.Hex(),
		TrustedSigner:     state.TrustedSigner.Hex(),
		BaseURI:           state.BaseURI,
		CurrentSoldUnitID: state.CurrentSoldUnitID,
		CurrentItemID:     state.CurrentItemID,
		UpdatedAt:         state.UpdatedAt,
	}
}

func saleStateFromSchema(row *schema.SaleState) *domain.SaleState {
	return &domain.SaleState{
		Paused:            row.Paused,
		PaymentAddress:    common.HexToAddress(row.PaymentAddress),
		TrustedSigner:     common.HexToAddress(row.TrustedSigner),
		BaseURI:           row.BaseURI,
		CurrentSoldUnitID: row.CurrentSoldUnitID,
		CurrentItemID:     row.CurrentItemID,
		UpdatedAt:         row.UpdatedAt,
	}
}
