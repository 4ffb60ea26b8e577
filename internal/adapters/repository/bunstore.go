package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/pkg/logger"
)

// BunStore is the postgres Store.
type BunStore struct {
	db           *bun.DB
	log          logger.Logger
	isolation    sql.IsolationLevel
	maxOpenConns int
}

var _ Store = (*BunStore)(nil)

// OpenPostgres connects to dsn, checks the connection and creates the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*BunStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	s := NewBunStore(bun.NewDB(sqldb, pgdialect.New()), opts...)
	if s.maxOpenConns > 0 {
		sqldb.SetMaxOpenConns(s.maxOpenConns)
	}
	if err := s.db.PingContext(ctx); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := s.CreateSchema(ctx); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

// NewBunStore wraps an existing bun database.
func NewBunStore(db *bun.DB, opts ...Option) *BunStore {
	s := &BunStore{
		db:        db,
		log:       logger.Nop(),
		isolation: sql.LevelReadCommitted,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSchema creates both tables and the collection index when missing.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*userRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := s.db.NewCreateTable().
		Model((*collectionRow)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create user_collections table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*collectionRow)(nil)).
		Index("idx_user_collections_user_id").
		Column("user_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create user_id index: %w", err)
	}
	return nil
}

// CreateOrGetUser inserts the user if absent and reads it back.
func (s *BunStore) CreateOrGetUser(ctx context.Context, username string, startingCoins int64) (model.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.User{}, false, ErrEmptyUsername
	}

	row := userRow{Username: username, PokeCoins: startingCoins}
	res, err := s.db.NewInsert().
		Model(&row).
		Column("username", "poke_coins").
		On("CONFLICT (username) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return model.User{}, false, fmt.Errorf("insert user: %w", err)
	}
	created := false
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		created = true
	}

	u, err := s.UserByName(ctx, username)
	if err != nil {
		return model.User{}, false, err
	}
	if created {
		s.log.Info(ctx, "user registered", logger.String("username", username), logger.Int64("user_id", u.ID))
	}
	return u, created, nil
}

// UserByName looks a user up by username.
func (s *BunStore) UserByName(ctx context.Context, username string) (model.User, error) {
	var row userRow
	err := s.db.NewSelect().
		Model(&row).
		Where("u.username = ?", username).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	return row.toModel(), nil
}

// ListCollection returns a user's cards, newest first.
func (s *BunStore) ListCollection(ctx context.Context, userID int64) ([]model.CollectionEntry, error) {
	var rows []collectionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("uc.user_id = ?", userID).
		OrderExpr("uc.id DESC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select collection: %w", err)
	}
	out := make([]model.CollectionEntry, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// InTx runs fn inside RunInTx; bun rolls back when fn fails or panics.
func (s *BunStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{Isolation: s.isolation}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{tx: tx})
	})
}

// Close closes the database handle.
func (s *BunStore) Close() error {
	return s.db.Close()
}

type bunTx struct {
	tx bun.Tx
}

func (t *bunTx) LockUser(ctx context.Context, userID int64) (model.User, error) {
	var row userRow
	err := t.tx.NewSelect().
		Model(&row).
		Where("u.id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("lock user: %w", err)
	}
	return row.toModel(), nil
}

func (t *bunTx) SetCoins(ctx context.Context, userID, coins int64) (model.User, error) {
	var row userRow
	err := t.tx.NewUpdate().
		Model(&row).
		Set("poke_coins = ?", coins).
		Where("u.id = ?", userID).
		Returning("u.id, u.username, u.poke_coins, u.created_at").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update coins: %w", err)
	}
	return row.toModel(), nil
}

func (t *bunTx) SetCollectionImage(ctx context.Context, userID int64, cardID, imageURL string) (int64, error) {
	res, err := t.tx.NewUpdate().
		Model((*collectionRow)(nil)).
		Set("card_image_url = ?", imageURL).
		Where("uc.user_id = ?", userID).
		Where("uc.card_id = ?", cardID).
		WhereGroup(" AND ", func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("uc.card_image_url IS NULL").
				WhereOr("uc.card_image_url = ''").
				WhereOr("uc.card_image_url LIKE ?", "%"+model.PlaceholderImage+"%")
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("update collection image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update collection image: %w", err)
	}
	return n, nil
}

func (t *bunTx) AppendCollection(ctx context.Context, entries []model.CollectionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]collectionRow, len(entries))
	for i, e := range entries {
		rows[i] = collectionRowFrom(e)
	}
	if _, err := t.tx.NewInsert().
		Model(&rows).
		Column("user_id", "card_id", "card_image_url", "card_rarity", "set_id", "set_name").
		Returning("NULL").
		Exec(ctx); err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}
