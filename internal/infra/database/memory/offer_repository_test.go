package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func record(id string, score, price float64, direct bool, visible time.Time) *offer.Record {
	return &offer.Record{
		ID:             id,
		PricePerPerson: price,
		AvgPrice:       price,
		Direct:         direct,
		Date:           base,
		Location:       "PAR",
		VisibleFrom:    visible,
		StealScore:     score,
	}
}

func TestSession_UpsertInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewOfferRepository()

	sess, err := repo.Begin(ctx)
	require.NoError(t, err)

	inserted, err := sess.Upsert(ctx, record("a", 10, 100, true, base))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = sess.Upsert(ctx, record("a", 20, 90, true, base))
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.Equal(t, 0, repo.Len(), "nothing visible before commit")
	require.NoError(t, sess.Commit(ctx))

	rec, ok := repo.Get("a")
	require.True(t, ok)
	assert.Equal(t, 20.0, rec.StealScore)
	assert.Equal(t, 90.0, rec.PricePerPerson)
	assert.Equal(t, 1, repo.Commits())
}

func TestSession_Rollback(t *testing.T) {
	ctx := context.Background()
	repo := NewOfferRepository()

	sess, err := repo.Begin(ctx)
	require.NoError(t, err)
	_, err = sess.Upsert(ctx, record("a", 10, 100, true, base))
	require.NoError(t, err)
	require.NoError(t, sess.Rollback(ctx))

	assert.Equal(t, 0, repo.Len())
	_, err = sess.Upsert(ctx, record("b", 10, 100, true, base))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_GetNotFound(t *testing.T) {
	ctx := context.Background()
	sess, err := NewOfferRepository().Begin(ctx)
	require.NoError(t, err)

	_, err = sess.Get(ctx, "missing")
	assert.True(t, errors.Is(err, offer.ErrNotFound))
}

func TestList_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewOfferRepository()

	sess, err := repo.Begin(ctx)
	require.NoError(t, err)
	for _, rec := range []*offer.Record{
		record("b", 50, 100, true, base.Add(-2*time.Hour)),
		record("a", 50, 200, false, base.Add(-2*time.Hour)),
		record("c", 70, 300, true, base.Add(-30*time.Minute)),
		record("d", 90, 50, true, base.Add(time.Hour)),
	} {
		_, err := sess.Upsert(ctx, rec)
		require.NoError(t, err)
	}
	require.NoError(t, sess.Commit(ctx))

	ids := func(recs []*offer.Record) []string {
		out := make([]string, 0, len(recs))
		for _, r := range recs {
			out = append(out, r.ID)
		}
		return out
	}

	t.Run("premium visibility", func(t *testing.T) {
		recs, err := repo.List(ctx, offer.ListFilter{VisibleBefore: base, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, ids(recs))
	})

	t.Run("free visibility", func(t *testing.T) {
		recs, err := repo.List(ctx, offer.ListFilter{VisibleBefore: base.Add(-time.Hour), Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(recs))
	})

	t.Run("price and direct", func(t *testing.T) {
		lo, hi := 100.0, 250.0
		recs, err := repo.List(ctx, offer.ListFilter{VisibleBefore: base, PriceMin: &lo, PriceMax: &hi, DirectOnly: true, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(recs))
	})

	t.Run("limit", func(t *testing.T) {
		recs, err := repo.List(ctx, offer.ListFilter{VisibleBefore: base, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, ids(recs))
	})
}
