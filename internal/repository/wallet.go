package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"coinpay/internal/model"
)

var (
	ErrAlreadyCredited = errors.New("credit already applied (idempotency)")
	ErrWalletNotFound  = errors.New("wallet not found")
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WalletRepo owns the durable wallet records in Postgres and a Redis read
// cache in front of them. Balances are only ever mutated by relative
// increments; there is no code path that writes an absolute balance.
type WalletRepo struct {
	redisClient *redis.Client
	db          DB
}

func NewWalletRepo(rdb *redis.Client, db DB) *WalletRepo {
	return &WalletRepo{
		redisClient: rdb,
		db:          db,
	}
}

func walletKey(userID string) string {
	return fmt.Sprintf("wallet:%s", userID)
}

// Credit applies one credit event: records it in the credits table and
// increments the wallet balance, in a single transaction. The credits
// table's primary key is the processor's event ID, so a redelivered event
// inserts zero rows and the increment is skipped — replays return
// ErrAlreadyCredited and leave the balance untouched.
func (r *WalletRepo) Credit(ctx context.Context, event model.CreditEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO credits (event_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.UserID, event.Amount, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record credit %s: %w", event.EventID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyCredited
	}

	// Upsert keeps first-credit semantics: the wallet row appears on the
	// first credit and is incremented ever after. last_updated is the
	// database's clock, not ours.
	_, err = tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, last_updated)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, last_updated = now()`,
		event.UserID, event.Amount,
	)
	if err != nil {
		return fmt.Errorf("increment wallet %s: %w", event.UserID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit credit tx: %w", err)
	}

	// Drop the cached record so the next read warms up from Postgres.
	// Best effort: a stale cache entry self-heals on the next credit.
	if err := r.redisClient.Del(ctx, walletKey(event.UserID)).Err(); err != nil {
		slog.Warn("failed to invalidate wallet cache", "user_id", event.UserID, "error", err)
	}

	return nil
}

// GetWallet reads the cached wallet record, falling back to Postgres and
// warming the cache on a miss.
func (r *WalletRepo) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	cached, err := r.redisClient.Get(ctx, walletKey(userID)).Bytes()
	if err == nil {
		var w model.Wallet
		if err := json.Unmarshal(cached, &w); err == nil {
			return &w, nil
		}
		// Unreadable cache entry: rebuild it from Postgres.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read wallet cache: %w", err)
	}

	return r.warmUpCache(ctx, userID)
}

// warmUpCache fetches the wallet from Postgres and puts it into Redis.
// No TTL: the cache entry is invalidated explicitly on every credit.
func (r *WalletRepo) warmUpCache(ctx context.Context, userID string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.QueryRow(ctx,
		`SELECT user_id, balance, last_updated FROM wallets WHERE user_id = $1`, userID,
	).Scan(&w.UserID, &w.Balance, &w.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query wallet %s: %w", userID, err)
	}

	data, _ := json.Marshal(w)
	if err := r.redisClient.Set(ctx, walletKey(userID), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("warm wallet cache: %w", err)
	}
	return &w, nil
}
