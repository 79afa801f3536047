// Package sqlite stores offers in an embedded SQLite database
// (DATABASE_URL=sqlite://path/to/file.db).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// date and visible_from keep their UTC offset as RFC 3339 text, so a
// departure at 00:30+02:00 reads back on the same calendar day.
// visible_from_ns mirrors visible_from for the numeric visibility filter.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS offers (
		id                  TEXT PRIMARY KEY,
		price_per_person    REAL NOT NULL,
		avg_price           REAL NOT NULL,
		hotel_rating        REAL NOT NULL,
		stars               INTEGER NOT NULL,
		distance_from_beach REAL NOT NULL,
		direct              INTEGER NOT NULL,
		total_duration      INTEGER NOT NULL,
		date                TEXT NOT NULL,
		location            TEXT NOT NULL,
		attraction_score    REAL NOT NULL,
		visible_from        TEXT NOT NULL,
		visible_from_ns     INTEGER NOT NULL,
		steal_score         REAL NOT NULL,
		updated_at          INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS offers_steal_score_idx ON offers (steal_score DESC, id ASC)`,
	`CREATE INDEX IF NOT EXISTS offers_visible_from_idx ON offers (visible_from_ns)`,
}

const timeLayout = time.RFC3339Nano

const offerColumns = `id, price_per_person, avg_price, hotel_rating, stars, distance_from_beach,
	direct, total_duration, date, location, attraction_score, visible_from, steal_score`

// OfferRepository implements offer.Repository on SQLite.
type OfferRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database file and its tables.
func Open(ctx context.Context, path string) (*OfferRepository, error) {
	db, err := sql.Open("sqlite", withBusyTimeout(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to init tables: %w", err)
		}
	}

	log.Info().Str("path", path).Msg("✅ SQLite store opened")
	return &OfferRepository{db: db}, nil
}

// withBusyTimeout makes writers wait for the run transaction instead of failing with SQLITE_BUSY.
func withBusyTimeout(path string) string {
	if strings.Contains(path, "_pragma=busy_timeout") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)"
}

// Close closes the database
func (r *OfferRepository) Close() error {
	return r.db.Close()
}

func (r *OfferRepository) Begin(ctx context.Context) (offer.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin offers tx: %w", err)
	}
	return &session{tx: tx}, nil
}

func (r *OfferRepository) List(ctx context.Context, filter offer.ListFilter) ([]*offer.Record, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.VisibleBefore.IsZero() {
		conds = append(conds, "visible_from_ns <= ?")
		args = append(args, filter.VisibleBefore.UnixNano())
	}
	if filter.PriceMin != nil {
		conds = append(conds, "price_per_person >= ?")
		args = append(args, *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		conds = append(conds, "price_per_person <= ?")
		args = append(args, *filter.PriceMax)
	}
	if filter.DirectOnly {
		conds = append(conds, "direct = 1")
	}

	query := "SELECT " + offerColumns + " FROM offers"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY steal_score DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	var records []*offer.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *OfferRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*offer.Record, error) {
	var (
		rec               offer.Record
		direct            int
		date, visibleFrom string
	)
	err := s.Scan(
		&rec.ID, &rec.PricePerPerson, &rec.AvgPrice, &rec.HotelRating, &rec.Stars,
		&rec.DistanceFromBeach, &direct, &rec.TotalDuration, &date, &rec.Location,
		&rec.AttractionScore, &visibleFrom, &rec.StealScore,
	)
	if err != nil {
		return nil, err
	}
	rec.Direct = direct != 0
	if rec.Date, err = time.Parse(timeLayout, date); err != nil {
		return nil, fmt.Errorf("date of %s: %w", rec.ID, err)
	}
	if rec.VisibleFrom, err = time.Parse(timeLayout, visibleFrom); err != nil {
		return nil, fmt.Errorf("visible_from of %s: %w", rec.ID, err)
	}
	return &rec, nil
}

type session struct {
	tx *sql.Tx
}

func (s *session) Get(ctx context.Context, id string) (*offer.Record, error) {
	row := s.tx.QueryRowContext(ctx, "SELECT "+offerColumns+" FROM offers WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, offer.ErrNotFound
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return rec, nil
}

func (s *session) Upsert(ctx context.Context, rec *offer.Record) (bool, error) {
	var exists bool
	if err := s.tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM offers WHERE id = ?)", rec.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("upsert offer %s: %w", rec.ID, err)
	}

	direct := 0
	if rec.Direct {
		direct = 1
	}

	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO offers (`+offerColumns+`, visible_from_ns, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			price_per_person = excluded.price_per_person,
			avg_price = excluded.avg_price,
			hotel_rating = excluded.hotel_rating,
			stars = excluded.stars,
			distance_from_beach = excluded.distance_from_beach,
			direct = excluded.direct,
			total_duration = excluded.total_duration,
			date = excluded.date,
			location = excluded.location,
			attraction_score = excluded.attraction_score,
			visible_from = excluded.visible_from,
			visible_from_ns = excluded.visible_from_ns,
			steal_score = excluded.steal_score,
			updated_at = excluded.updated_at`,
		rec.ID, rec.PricePerPerson, rec.AvgPrice, rec.HotelRating, rec.Stars,
		rec.DistanceFromBeach, direct, rec.TotalDuration, rec.Date.Format(timeLayout),
		rec.Location, rec.AttractionScore, rec.VisibleFrom.Format(timeLayout), rec.StealScore,
		rec.VisibleFrom.UnixNano(), time.Now().UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("upsert offer %s: %w", rec.ID, err)
	}
	return !exists, nil
}

func (s *session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit offers tx: %w", err)
	}
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback offers tx: %w", err)
	}
	return nil
}
