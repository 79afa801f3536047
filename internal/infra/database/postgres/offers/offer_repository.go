package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/infra/database/postgres"
)

const offerColumns = `id, price_per_person, avg_price, hotel_rating, stars, distance_from_beach,
	direct, total_duration, date, location, attraction_score, visible_from, steal_score`

// upsertOfferQuery overwrites every field of an existing row.
// xmax = 0 only for freshly inserted rows.
const upsertOfferQuery = `
	INSERT INTO tripsniper.offers (` + offerColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		price_per_person = EXCLUDED.price_per_person,
		avg_price = EXCLUDED.avg_price,
		hotel_rating = EXCLUDED.hotel_rating,
		stars = EXCLUDED.stars,
		distance_from_beach = EXCLUDED.distance_from_beach,
		direct = EXCLUDED.direct,
		total_duration = EXCLUDED.total_duration,
		date = EXCLUDED.date,
		location = EXCLUDED.location,
		attraction_score = EXCLUDED.attraction_score,
		visible_from = EXCLUDED.visible_from,
		steal_score = EXCLUDED.steal_score,
		updated_at = now()
	RETURNING (xmax = 0) AS inserted
`

// OfferRepository PostgreSQL 오퍼 저장소 (tripsniper.offers)
type OfferRepository struct {
	pool *postgres.Pool
}

// NewOfferRepository 저장소 생성
func NewOfferRepository(pool *postgres.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// Begin opens a transaction; the run commits it once at the end.
func (r *OfferRepository) Begin(ctx context.Context) (offer.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin offers tx: %w", err)
	}
	return &session{tx: tx}, nil
}

// List 읽기 API 조회 (steal_score DESC, id ASC)
func (r *OfferRepository) List(ctx context.Context, filter offer.ListFilter) ([]*offer.Record, error) {
	query, args := buildListQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[offer.Record])
	if err != nil {
		return nil, fmt.Errorf("scan offers: %w", err)
	}
	return records, nil
}

// Ping checks the pool
func (r *OfferRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func buildListQuery(filter offer.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.VisibleBefore.IsZero() {
		conds = append(conds, "visible_from <= "+arg(filter.VisibleBefore))
	}
	if filter.PriceMin != nil {
		conds = append(conds, "price_per_person >= "+arg(*filter.PriceMin))
	}
	if filter.PriceMax != nil {
		conds = append(conds, "price_per_person <= "+arg(*filter.PriceMax))
	}
	if filter.DirectOnly {
		conds = append(conds, "direct")
	}

	var b strings.Builder
	b.WriteString("SELECT " + offerColumns + " FROM tripsniper.offers")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY steal_score DESC, id ASC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}
	return b.String(), args
}

// session is one run's transaction.
type session struct {
	tx pgx.Tx
}

func (s *session) Get(ctx context.Context, id string) (*offer.Record, error) {
	rows, err := s.tx.Query(ctx, "SELECT "+offerColumns+" FROM tripsniper.offers WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[offer.Record])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offer.ErrNotFound
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return rec, nil
}

// Upsert 오퍼 저장 (id 기준 전체 필드 덮어쓰기)
// Each upsert runs inside a savepoint: a failed statement would otherwise
// abort the run transaction and every later upsert with it.
func (s *session) Upsert(ctx context.Context, rec *offer.Record) (bool, error) {
	sp, err := s.tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("upsert offer %s: savepoint: %w", rec.ID, err)
	}

	var inserted bool
	err = sp.QueryRow(ctx, upsertOfferQuery,
		rec.ID, rec.PricePerPerson, rec.AvgPrice, rec.HotelRating, rec.Stars,
		rec.DistanceFromBeach, rec.Direct, rec.TotalDuration, rec.Date,
		rec.Location, rec.AttractionScore, rec.VisibleFrom, rec.StealScore,
	).Scan(&inserted)
	if err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return false, fmt.Errorf("upsert offer %s: %w (rollback to savepoint: %w)", rec.ID, err, rbErr)
		}
		return false, fmt.Errorf("upsert offer %s: %w", rec.ID, err)
	}

	if err := sp.Commit(ctx); err != nil {
		return false, fmt.Errorf("upsert offer %s: release savepoint: %w", rec.ID, err)
	}
	return inserted, nil
}

func (s *session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit offers tx: %w", err)
	}
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	err := s.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback offers tx: %w", err)
	}
	return nil
}
