package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refusingBeginner struct{ calls int }

func (b *refusingBeginner) BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error) {
	b.calls++
	return nil, errors.New("pool exhausted")
}

func TestContextTransaction(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil), "nil tx is not stored")

	sqlTx, db := &sql.Tx{}, &sql.DB{}
	carried := WithTx(ctx, sqlTx)
	got, ok := From(carried)
	require.True(t, ok)
	assert.Same(t, sqlTx, got)
	assert.Same(t, sqlTx, Use(carried, db))
	assert.Same(t, db, Use(ctx, db))
}

func TestRun(t *testing.T) {
	t.Run("begin failure is reported and fn is skipped", func(t *testing.T) {
		b := &refusingBeginner{}
		ran := false
		err := Run(context.Background(), b, func(context.Context) error { ran = true; return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "begin tx")
		assert.False(t, ran)
	})

	t.Run("nested run joins the outer transaction", func(t *testing.T) {
		b := &refusingBeginner{}
		outer := WithTx(context.Background(), &sql.Tx{})
		boom := errors.New("boom")
		err := Run(outer, b, func(ctx context.Context) error {
			_, ok := From(ctx)
			assert.True(t, ok)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, b.calls)
	})
}
