package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wonny/tripsniper/internal/api/middleware"
	"github.com/wonny/tripsniper/internal/api/response"
	"github.com/wonny/tripsniper/internal/domain/offer"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// DefaultFreeTierDelay hides fresh offers from free accounts.
	DefaultFreeTierDelay = time.Hour
)

// OffersHandler serves the read API over persisted offers
type OffersHandler struct {
	repo          offer.Repository
	freeTierDelay time.Duration
	now           func() time.Time
}

// NewOffersHandler creates a new offers handler
func NewOffersHandler(repo offer.Repository, freeTierDelay time.Duration, now func() time.Time) *OffersHandler {
	if freeTierDelay < 0 {
		freeTierDelay = DefaultFreeTierDelay
	}
	if now == nil {
		now = time.Now
	}
	return &OffersHandler{repo: repo, freeTierDelay: freeTierDelay, now: now}
}

// List returns the best visible offers
// GET /api/v1/offers?limit=&account_type=&price_min=&price_max=&direct_only=
func (h *OffersHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, accountType, fields := h.parseFilter(r)
	if len(fields) > 0 {
		response.ValidationError(w, r, fields)
		return
	}

	records, err := h.repo.List(r.Context(), filter)
	if err != nil {
		response.DatabaseError(w, r, err)
		return
	}
	if records == nil {
		records = []*offer.Record{}
	}

	log.Debug().
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("account_type", string(accountType)).
		Time("visible_before", filter.VisibleBefore).
		Int("count", len(records)).
		Msg("Offers listed")

	response.SuccessList(w, r, records, len(records))
}

// parseFilter collects every invalid parameter instead of stopping at the first.
func (h *OffersHandler) parseFilter(r *http.Request) (offer.ListFilter, offer.AccountType, []response.FieldError) {
	q := r.URL.Query()
	var fields []response.FieldError
	invalid := func(field, msg string) {
		fields = append(fields, response.FieldError{Field: field, Message: msg})
	}

	filter := offer.ListFilter{Limit: DefaultLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			invalid("limit", "must be an integer between 1 and 100")
		} else {
			filter.Limit = n
		}
	}

	accountType := offer.AccountFree
	if v := q.Get("account_type"); v != "" {
		switch offer.AccountType(v) {
		case offer.AccountFree, offer.AccountPremium:
			accountType = offer.AccountType(v)
		default:
			invalid("account_type", "must be free or premium")
		}
	}

	parsePrice := func(name string) *float64 {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			invalid(name, "must be a number")
			return nil
		}
		return &f
	}
	filter.PriceMin = parsePrice("price_min")
	filter.PriceMax = parsePrice("price_max")

	if v := q.Get("direct_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid("direct_only", "must be a boolean")
		} else {
			filter.DirectOnly = b
		}
	}

	now := h.now().UTC()
	if accountType == offer.AccountFree {
		filter.VisibleBefore = now.Add(-h.freeTierDelay)
	} else {
		filter.VisibleBefore = now
	}

	return filter, accountType, fields
}
