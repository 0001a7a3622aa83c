package database

import (
	"context"
	"database/sql"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/jmoiron/sqlx"
)

// TxManager runs a function inside a transaction stored in the context.
// Repositories built with trmsqlx.DefaultCtxGetter pick the transaction up
// automatically; nested calls join the outer transaction.
type TxManager struct {
	manager  *manager.Manager
	settings trm.Settings
}

// NewTxManager builds a TxManager over db.  Transactions run at READ
// COMMITTED so that bookings for disjoint seats take no gap locks on
// each other; double booking is prevented by unique indexes.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{
		manager: manager.Must(trmsqlx.NewDefaultFactory(db)),
		settings: trmsql.MustSettings(
			settings.Must(settings.WithCancelable(true)),
			trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelReadCommitted}),
		),
	}
}

// Do executes fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.manager.DoWithSettings(ctx, m.settings, fn)
}
