package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"startupconnect/internal/dbmysql"
)

// Origin identifies where a session connected from.
type Origin struct {
	IPAddress string
	UserAgent string
}

type Repository interface {
	// Adjust moves the live-session count by delta and stamps last_activity in
	// one transaction, creating the row on first use.
	Adjust(ctx context.Context, userID uint64, delta int, origin *Origin, at time.Time) (*dbmysql.UserPresence, error)
	Get(ctx context.Context, userID uint64) (*dbmysql.UserPresence, error)
	Online(ctx context.Context, limit int) ([]uint64, error)
}

type presenceRepo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &presenceRepo{db: db}
}

func (r *presenceRepo) Adjust(ctx context.Context, userID uint64, delta int, origin *Origin, at time.Time) (*dbmysql.UserPresence, error) {
	var p dbmysql.UserPresence

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := &dbmysql.UserPresence{UserID: userID, LastActivity: at}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return fmt.Errorf("seed presence row: %w", err)
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "user_id = ?", userID).Error; err != nil {
			return fmt.Errorf("lock presence row: %w", err)
		}

		p.Connections += delta
		if p.Connections < 0 {
			p.Connections = 0
		}
		p.IsOnline = p.Connections > 0
		p.LastActivity = at
		if origin != nil {
			p.IPAddress = origin.IPAddress
			p.UserAgent = truncate(origin.UserAgent, 255)
		}

		return tx.Model(&dbmysql.UserPresence{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"connections":   p.Connections,
				"is_online":     p.IsOnline,
				"last_activity": p.LastActivity,
				"ip_address":    p.IPAddress,
				"user_agent":    p.UserAgent,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update presence for user %d: %w", userID, err)
	}
	return &p, nil
}

func (r *presenceRepo) Get(ctx context.Context, userID uint64) (*dbmysql.UserPresence, error) {
	var p dbmysql.UserPresence
	err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &dbmysql.UserPresence{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get presence for user %d: %w", userID, err)
	}
	return &p, nil
}

func (r *presenceRepo) Online(ctx context.Context, limit int) ([]uint64, error) {
	var ids []uint64
	q := r.db.WithContext(ctx).
		Model(&dbmysql.UserPresence{}).
		Where("is_online = ?", true).
		Order("last_activity DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	return ids, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
