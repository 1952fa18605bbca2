package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const pgUniqueViolation = "23505"

type recordRow struct {
	ID          string    `gorm:"primaryKey;size:128"`
	Name        string    `gorm:"size:256;not null"`
	Description string    `gorm:"size:256"`
	Capacity    uint32    `gorm:"not null"`
	Creator     string    `gorm:"size:64;index;not null"`
	Handle      []byte    `gorm:"not null"`
	Verified    bool      `gorm:"not null;default:false"`
	Revealed    int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (recordRow) TableName() string { return "session_records" }

// GormState persists entries in postgres.
type GormState struct {
	db *gorm.DB
}

var _ State = (*GormState)(nil)

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string) (*GormState, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return NewGormState(db)
}

func NewGormState(db *gorm.DB) (*GormState, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("migrate session_records: %w", err)
	}
	return &GormState{db: db}, nil
}

func (g *GormState) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := g.db.WithContext(ctx).
		Model(&recordRow{}).
		Order("created_at, id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

func (g *GormState) Get(ctx context.Context, id string) (Entry, error) {
	var row recordRow
	if err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return Entry{}, classify(err)
	}
	return row.entry(), nil
}

func (g *GormState) Insert(ctx context.Context, e Entry) error {
	row := recordRow{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Capacity:    e.Capacity,
		Creator:     e.Creator,
		Handle:      e.Handle,
		CreatedAt:   e.CreatedAt.UTC(),
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err)
	}
	return nil
}

func (g *GormState) MarkVerified(ctx context.Context, id string, value uint64) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row recordRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
		if err != nil {
			return err
		}
		if row.Verified {
			return ErrAlreadyVerified
		}
		return tx.Model(&row).Updates(map[string]any{
			"verified": true,
			"revealed": int64(value),
		}).Error
	})
	if errors.Is(err, ErrAlreadyVerified) {
		return err
	}
	if err != nil {
		return classify(err)
	}
	return nil
}

func (g *GormState) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (g *GormState) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r recordRow) entry() Entry {
	return Entry{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Capacity:    r.Capacity,
		Creator:     r.Creator,
		CreatedAt:   r.CreatedAt,
		Handle:      r.Handle,
		Verified:    r.Verified,
		Revealed:    uint64(r.Revealed),
	}
}

func classify(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
