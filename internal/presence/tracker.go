// Package presence keeps the persisted online flag in step with live sessions.
package presence

import (
	"context"
	"log"
	"time"

	"startupconnect/internal/dbmysql"
)

// Tracker writes every presence change straight to the store. There is no
// batching and no retry; errors go back to the caller.
type Tracker struct {
	repo Repository
	now  func() time.Time
}

func NewTracker(repo Repository) *Tracker {
	return &Tracker{repo: repo, now: time.Now}
}

func (t *Tracker) SetOnline(ctx context.Context, userID uint64, origin Origin) error {
	p, err := t.repo.Adjust(ctx, userID, 1, &origin, t.now())
	if err != nil {
		return err
	}
	log.Printf("presence: user %d online (%d sessions)", userID, p.Connections)
	return nil
}

func (t *Tracker) SetOffline(ctx context.Context, userID uint64) error {
	p, err := t.repo.Adjust(ctx, userID, -1, nil, t.now())
	if err != nil {
		return err
	}
	if !p.IsOnline {
		log.Printf("presence: user %d offline", userID)
	}
	return nil
}

func (t *Tracker) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	p, err := t.repo.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.IsOnline, nil
}

// LastActivity returns the zero time for users that never connected.
func (t *Tracker) LastActivity(ctx context.Context, userID uint64) (time.Time, error) {
	p, err := t.repo.Get(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	return p.LastActivity, nil
}

func (t *Tracker) Status(ctx context.Context, userID uint64) (*dbmysql.UserPresence, error) {
	return t.repo.Get(ctx, userID)
}

func (t *Tracker) OnlineUsers(ctx context.Context, limit int) ([]uint64, error) {
	return t.repo.Online(ctx, limit)
}
