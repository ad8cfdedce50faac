package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/LovationAdmin/travel-planner-api/models"
)

// ============================================================================
// TRIP PLANNER - budget, research, itinerary and photos for one request
// ============================================================================

// ItineraryGenerator produces the research brief and itinerary. *Crew
// implements it.
type ItineraryGenerator interface {
	Kickoff(ctx context.Context, inputs map[string]string) (*CrewOutput, error)
}

// ProgressNotifier receives plan progress events.
type ProgressNotifier interface {
	Notify(event models.ProgressEvent)
}

type TripPlannerService struct {
	store    PlanStore
	crew     ItineraryGenerator
	images   ImageSearcher
	notifier ProgressNotifier
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

type PlannerOptions struct {
	Store    PlanStore
	Crew     ItineraryGenerator
	Images   ImageSearcher
	Notifier ProgressNotifier
	CacheTTL time.Duration
	Logger   zerolog.Logger
}

func NewTripPlannerService(opts PlannerOptions) *TripPlannerService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * 24 * time.Hour
	}
	return &TripPlannerService{
		store:    opts.Store,
		crew:     opts.Crew,
		images:   opts.Images,
		notifier: opts.Notifier,
		ttl:      opts.CacheTTL,
		now:      time.Now,
		log:      opts.Logger,
	}
}

func (s *TripPlannerService) notify(planID, stage, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(models.ProgressEvent{PlanID: planID, Stage: stage, Message: message, Time: s.now().UTC()})
}

// Plan builds a full trip plan. The budget is computed first so invalid
// input fails before any network call. Photos are looked up concurrently and
// their failure never fails the plan.
func (s *TripPlannerService) Plan(ctx context.Context, req models.TripRequest) (*models.TripPlan, error) {
	budget, err := NewBudgetPlan(decimal.NewFromFloat(req.Budget), req.Travellers)
	if err != nil {
		return nil, err
	}

	planID := req.PlanID
	if planID == "" {
		planID = uuid.NewString()
	} else if err := s.checkPlanIDFree(ctx, planID); err != nil {
		return nil, err
	}
	req.PlanID = ""

	log := s.log.With().Str("plan_id", planID).Str("destination", req.Destination).Logger()
	s.notify(planID, models.StageStarted, fmt.Sprintf("Planning %d days in %s", req.Days, req.Destination))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	imagesCh := make(chan models.ImageResult, 1)
	go func() {
		imagesCh <- s.searchImages(ctx, planID, req.Destination, log)
	}()

	now := s.now().UTC()
	key := PlanCacheKey(req)

	var research, itinerary string
	var cachedImages *models.ImageResult
	expiresAt := now.Add(s.ttl)
	cached := false

	if hit := s.lookupCache(ctx, key, now, log); hit != nil {
		research, itinerary = hit.Research, hit.Itinerary
		cachedImages = &hit.Images
		expiresAt = hit.ExpiresAt
		cached = true
		log.Info().Str("cached_plan", hit.ID).Msg("[Planner] reusing cached research and itinerary")
	} else {
		var err error
		research, itinerary, err = s.runCrew(ctx, planID, req)
		if err != nil {
			log.Error().Err(err).Msg("[Planner] crew failed")
			cancel()
			<-imagesCh
			s.notify(planID, models.StageFailed, "Could not generate the itinerary")
			return nil, err
		}
	}

	var images models.ImageResult
	select {
	case images = <-imagesCh:
	case <-ctx.Done():
		s.notify(planID, models.StageFailed, "Request cancelled")
		return nil, ctx.Err()
	}
	if !images.OK() && cachedImages != nil && cachedImages.OK() && len(cachedImages.URLs) > 0 {
		images = *cachedImages
	}

	plan := &models.TripPlan{
		ID:        planID,
		Request:   req,
		Research:  research,
		Itinerary: itinerary,
		Budget:    budget,
		Images:    images,
		Cached:    cached,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	if s.store != nil {
		err := s.store.Save(ctx, &models.StoredPlan{
			ID:        plan.ID,
			CacheKey:  key,
			Request:   req,
			Research:  research,
			Itinerary: itinerary,
			Images:    images,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			if errors.Is(s.checkPlanIDFree(ctx, plan.ID), ErrPlanExists) {
				log.Warn().Err(err).Msg("[Planner] plan id taken while planning")
				s.notify(planID, models.StageFailed, "Plan id already in use")
				return nil, errors.Wrapf(ErrPlanExists, "plan %s", plan.ID)
			}
			// the plan is still returned, only GET by id will miss
			log.Error().Err(err).Msg("[Planner] failed to save plan")
		}
	}

	s.notify(planID, models.StageCompleted, "Your trip plan is ready")
	log.Info().Bool("cached", cached).Bool("images_ok", images.OK()).Msg("[Planner] plan complete")
	return plan, nil
}

// checkPlanIDFree fails with ErrPlanExists when a stored plan already uses id.
func (s *TripPlannerService) checkPlanIDFree(ctx context.Context, id string) error {
	if s.store == nil {
		return nil
	}
	_, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		return errors.Wrapf(ErrPlanExists, "plan %s", id)
	case errors.Is(err, ErrPlanNotFound):
		return nil
	default:
		return errors.Wrap(err, "failed to check plan id")
	}
}

// lookupCache returns nil on a miss. Store errors are logged and treated as
// a miss.
func (s *TripPlannerService) lookupCache(ctx context.Context, key string, now time.Time, log zerolog.Logger) *models.StoredPlan {
	if s.store == nil {
		return nil
	}
	hit, err := s.store.FindByCacheKey(ctx, key, now)
	if err != nil {
		if !errors.Is(err, ErrPlanNotFound) {
			log.Warn().Err(err).Msg("[Planner] plan cache lookup failed")
		}
		return nil
	}
	return hit
}

func (s *TripPlannerService) runCrew(ctx context.Context, planID string, req models.TripRequest) (string, string, error) {
	if s.crew == nil {
		return "", "", errors.New("itinerary generator is not configured")
	}

	ctx = WithTaskHook(ctx, func(_ int, task Task) {
		switch task.Name {
		case TaskResearch:
			s.notify(planID, models.StageResearching, "Researching "+req.Destination)
		case TaskItinerary:
			s.notify(planID, models.StagePlanning, "Building your day-by-day itinerary")
		}
	})

	out, err := s.crew.Kickoff(ctx, crewInputs(req))
	if err != nil {
		return "", "", err
	}

	research, ok := out.Output(TaskResearch)
	if !ok {
		return "", "", &UpstreamError{Service: "crew", Message: "research output missing"}
	}
	itinerary, ok := out.Output(TaskItinerary)
	if !ok {
		return "", "", &UpstreamError{Service: "crew", Message: "itinerary output missing"}
	}
	return research, itinerary, nil
}

func (s *TripPlannerService) searchImages(ctx context.Context, planID, destination string, log zerolog.Logger) models.ImageResult {
	if s.images == nil {
		return models.ImagesFailed("image search is not configured")
	}
	s.notify(planID, models.StageImages, "Finding photos of "+destination)

	urls, err := s.images.SearchImages(ctx, destination)
	if err != nil {
		log.Warn().Err(err).Msg("[Planner] image search failed")
		return models.ImagesFailed(imageFailureReason(err))
	}
	return models.ImagesOK(urls)
}

func imageFailureReason(err error) string {
	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrRateLimited):
		return "image search rate limit reached"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "image search timed out"
	case errors.As(err, &upstream):
		return upstream.Error()
	default:
		return "image search unavailable"
	}
}

func crewInputs(req models.TripRequest) map[string]string {
	return map[string]string{
		"origin":      req.Origin,
		"destination": req.Destination,
		"month":       req.Month,
		"days":        strconv.Itoa(req.Days),
		"travellers":  strconv.Itoa(req.Travellers),
		"budget":      decimal.NewFromFloat(req.Budget).StringFixed(0),
		"style":       req.Style,
	}
}

// Get loads a stored plan. The budget is recomputed from the stored inputs.
func (s *TripPlannerService) Get(ctx context.Context, id string) (*models.TripPlan, error) {
	if s.store == nil {
		return nil, ErrPlanNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, &InvalidArgumentError{Argument: "id", Reason: "must be a UUID"}
	}

	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	budget, err := NewBudgetPlan(decimal.NewFromFloat(stored.Request.Budget), stored.Request.Travellers)
	if err != nil {
		return nil, errors.Wrapf(err, "stored plan %s", id)
	}

	return &models.TripPlan{
		ID:        stored.ID,
		Request:   stored.Request,
		Research:  stored.Research,
		Itinerary: stored.Itinerary,
		Budget:    budget,
		Images:    stored.Images,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// CleanExpired removes plans past their expiry.
func (s *TripPlannerService) CleanExpired(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.store.DeleteExpired(ctx, s.now().UTC())
}
