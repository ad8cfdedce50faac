package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/LovationAdmin/travel-planner-api/config"
	"github.com/LovationAdmin/travel-planner-api/models"
)

// PlanStore persists generated plans so identical trips reuse research and
// itineraries instead of spending another crew run.
type PlanStore interface {
	Save(ctx context.Context, plan *models.StoredPlan) error
	Get(ctx context.Context, id string) (*models.StoredPlan, error)
	FindByCacheKey(ctx context.Context, key string, now time.Time) (*models.StoredPlan, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PlanCacheKey identifies the inputs the crew prompts depend on. Budget and
// traveller count only affect the allocator, so they are not part of it.
func PlanCacheKey(req models.TripRequest) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(req.Origin)),
		strings.ToLower(strings.TrimSpace(req.Destination)),
		strconv.Itoa(req.Days),
		strings.ToLower(req.Month),
		strings.ToLower(req.Style),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

type SQLPlanStore struct {
	DB      *sql.DB
	Dialect config.Dialect
}

func NewSQLPlanStore(db *sql.DB, dialect config.Dialect) *SQLPlanStore {
	return &SQLPlanStore{DB: db, Dialect: dialect}
}

// rebind turns $n placeholders into ? for SQLite.
func (s *SQLPlanStore) rebind(query string) string {
	if s.Dialect != config.DialectSQLite {
		return query
	}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '$' {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				b.WriteByte('?')
				i = j - 1
				continue
			}
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLPlanStore) Save(ctx context.Context, plan *models.StoredPlan) error {
	requestJSON, err := json.Marshal(plan.Request)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}
	imagesJSON, err := json.Marshal(plan.Images)
	if err != nil {
		return errors.Wrap(err, "failed to encode images")
	}

	_, err = s.DB.ExecContext(ctx, s.rebind(`
		INSERT INTO trip_plans (id, cache_key, request, research, itinerary, images, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`),
		plan.ID, plan.CacheKey, string(requestJSON), plan.Research, plan.Itinerary, string(imagesJSON),
		plan.CreatedAt.Unix(), plan.ExpiresAt.Unix(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to save plan")
	}
	return nil
}

func (s *SQLPlanStore) Get(ctx context.Context, id string) (*models.StoredPlan, error) {
	row := s.DB.QueryRowContext(ctx, s.rebind(`
		SELECT id, cache_key, request, research, itinerary, images, created_at, expires_at
		FROM trip_plans WHERE id = $1`), id)
	return scanPlan(row)
}

// FindByCacheKey returns the newest unexpired plan for key.
func (s *SQLPlanStore) FindByCacheKey(ctx context.Context, key string, now time.Time) (*models.StoredPlan, error) {
	row := s.DB.QueryRowContext(ctx, s.rebind(`
		SELECT id, cache_key, request, research, itinerary, images, created_at, expires_at
		FROM trip_plans
		WHERE cache_key = $1 AND expires_at > $2
		ORDER BY created_at DESC LIMIT 1`), key, now.Unix())
	return scanPlan(row)
}

func (s *SQLPlanStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM trip_plans WHERE expires_at <= $1`), now.Unix())
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean plans")
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func scanPlan(row *sql.Row) (*models.StoredPlan, error) {
	var (
		plan                    models.StoredPlan
		requestJSON, imagesJSON string
		createdAt, expiresAt    int64
	)
	err := row.Scan(&plan.ID, &plan.CacheKey, &requestJSON, &plan.Research, &plan.Itinerary,
		&imagesJSON, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load plan")
	}

	if err := json.Unmarshal([]byte(requestJSON), &plan.Request); err != nil {
		return nil, errors.Wrap(err, "failed to decode stored request")
	}
	if err := json.Unmarshal([]byte(imagesJSON), &plan.Images); err != nil {
		return nil, errors.Wrap(err, "failed to decode stored images")
	}
	plan.CreatedAt = time.Unix(createdAt, 0).UTC()
	plan.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &plan, nil
}
