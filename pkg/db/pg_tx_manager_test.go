package db

import (
	"context"
	"errors"
	"testing"

	"quant_trader/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// fakeTx — минимальная pgx.Tx: учитывает Commit/Rollback, остальное не используется.
type fakeTx struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) { return f, nil }

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

func (f *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (f *fakeTx) Conn() *pgx.Conn { return nil }

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (f *fakeBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func TestInTxCommitErrorPropagates(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("connection reset during commit")}
	m := &PgTxManager{}

	err := m.inTx(context.Background(), &fakeBeginner{tx: tx}, pgx.TxOptions{}, func(context.Context, pgx.Tx) error {
		return nil
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to commit tx")
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestInTxCommitSuccess(t *testing.T) {
	tx := &fakeTx{}
	m := &PgTxManager{}

	err := m.inTx(context.Background(), &fakeBeginner{tx: tx}, pgx.TxOptions{}, func(context.Context, pgx.Tx) error {
		return nil
	})

	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestInTxFnErrorRollsBack(t *testing.T) {
	tx := &fakeTx{}
	m := &PgTxManager{}

	err := m.inTx(context.Background(), &fakeBeginner{tx: tx}, pgx.TxOptions{}, func(context.Context, pgx.Tx) error {
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to run fn")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestInTxBeginError(t *testing.T) {
	m := &PgTxManager{}

	err := m.inTx(context.Background(), &fakeBeginner{beginErr: errors.New("pool exhausted")}, pgx.TxOptions{}, func(context.Context, pgx.Tx) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to begin tx")
}
