package database

import (
	"database/sql"
	"errors"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Txn scopes a single request's transaction. Handlers commit explicitly on
// success and roll back explicitly on business failures; the deferred Close
// is the safety net that keeps a failed transaction from leaking into the
// next request on a pooled connection.
type Txn struct {
	tx   *gorm.DB
	done bool
}

// Begin opens a transaction on the given connection.
func Begin(conn *gorm.DB) (*Txn, error) {
	tx := conn.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Txn{tx: tx}, nil
}

// DB exposes the transaction handle for queries.
func (t *Txn) DB() *gorm.DB {
	return t.tx
}

func (t *Txn) Commit() error {
	t.done = true
	return t.tx.Commit().Error
}

func (t *Txn) Rollback() error {
	t.done = true
	return t.tx.Rollback().Error
}

// Close rolls the transaction back unless it was already resolved. Meant to
// be deferred right after Begin so every exit path is covered.
func (t *Txn) Close() {
	if t == nil || t.done {
		return
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.WithError(err).Warn("transaction cleanup rollback failed")
	}
}
