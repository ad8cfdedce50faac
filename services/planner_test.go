package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/travel-planner-api/models"
)

type fakeImages struct {
	urls  []string
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeImages) SearchImages(_ context.Context, query string) ([]string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.urls, f.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (r *recordingNotifier) Notify(event models.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}

func newTestPlanner(t *testing.T, llm LLMProvider, images ImageSearcher) (*TripPlannerService, *SQLPlanStore, *recordingNotifier) {
	t.Helper()
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	planner := NewTripPlannerService(PlannerOptions{
		Store:    store,
		Crew:     NewTravelCrew(llm, &fakeSearch{}, zerolog.Nop()),
		Images:   images,
		Notifier: notifier,
		CacheTTL: time.Hour,
		Logger:   zerolog.Nop(),
	})
	return planner, store, notifier
}

func TestTripPlanner_Plan(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"research brief", "day by day"}}
	images := &fakeImages{urls: []string{"https://img.example.com/1.jpg"}}
	planner, _, notifier := newTestPlanner(t, llm, images)

	plan, err := planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)

	_, err = uuid.Parse(plan.ID)
	assert.NoError(t, err)
	assert.Equal(t, "research brief", plan.Research)
	assert.Equal(t, "day by day", plan.Itinerary)
	assert.False(t, plan.Cached)
	assert.Equal(t, models.ImagesOK([]string{"https://img.example.com/1.jpg"}), plan.Images)

	require.NotNil(t, plan.Budget)
	require.Len(t, plan.Budget.Categories, 6)
	assert.Equal(t, models.CategoryRow{Category: "Flights", Total: 32000, PerPerson: 16000}, plan.Budget.Categories[0])

	stages := notifier.stages()
	assert.Equal(t, models.StageStarted, stages[0])
	assert.Equal(t, models.StageCompleted, stages[len(stages)-1])
	assert.Contains(t, stages, models.StageResearching)
	assert.Contains(t, stages, models.StagePlanning)
	assert.Contains(t, stages, models.StageImages)
	for _, e := range notifier.events {
		assert.Equal(t, plan.ID, e.PlanID)
	}
}

func TestTripPlanner_InvalidBudgetFailsBeforeNetwork(t *testing.T) {
	llm := &scriptedLLM{}
	images := &fakeImages{}
	planner, _, notifier := newTestPlanner(t, llm, images)

	req := sampleRequest()
	req.Travellers = 0

	plan, err := planner.Plan(context.Background(), req)
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, llm.calls)
	assert.Equal(t, 0, images.calls)
	assert.Empty(t, notifier.stages())
}

func TestTripPlanner_ImageFailureDoesNotFailPlan(t *testing.T) {
	llm := &scriptedLLM{}
	images := &fakeImages{err: &UpstreamError{Service: "serpapi", StatusCode: 429, Message: "Too Many Requests", Err: ErrRateLimited}}
	planner, _, _ := newTestPlanner(t, llm, images)

	plan, err := planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.False(t, plan.Images.OK())
	assert.Empty(t, plan.Images.URLs)
	assert.Equal(t, "image search rate limit reached", plan.Images.Reason)
}

func TestTripPlanner_NoImageSearcher(t *testing.T) {
	planner, _, _ := newTestPlanner(t, &scriptedLLM{}, nil)

	plan, err := planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ImageStatusError, plan.Images.Status)
}

func TestTripPlanner_CacheReusesDocuments(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"research", "itinerary"}}
	images := &fakeImages{urls: []string{"https://img.example.com/1.jpg"}}
	planner, _, _ := newTestPlanner(t, llm, images)

	first, err := planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Len(t, llm.calls, 2)

	// a different budget reuses the documents but recomputes the allocation
	req := sampleRequest()
	req.Budget = 100000
	req.Travellers = 4
	images.err = errors.New("down")

	second, err := planner.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, llm.calls, 2)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Research, second.Research)
	assert.Equal(t, first.Itinerary, second.Itinerary)
	assert.Equal(t, first.Images, second.Images)
	assert.Equal(t, int64(40000), second.Budget.Categories[0].Total)
	assert.Equal(t, int64(10000), second.Budget.Categories[0].PerPerson)
}

func TestTripPlanner_CrewFailure(t *testing.T) {
	llm := &scriptedLLM{err: &UpstreamError{Service: "gemini", Message: "quota exceeded"}}
	planner, store, notifier := newTestPlanner(t, llm, &fakeImages{})

	req := sampleRequest()
	req.PlanID = uuid.NewString()

	plan, err := planner.Plan(context.Background(), req)
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, ErrUpstream)

	stages := notifier.stages()
	assert.Equal(t, models.StageFailed, stages[len(stages)-1])

	_, err = store.Get(context.Background(), req.PlanID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestTripPlanner_ClientPlanIDAndGet(t *testing.T) {
	planner, _, _ := newTestPlanner(t, &scriptedLLM{}, &fakeImages{urls: []string{"https://img.example.com/1.jpg"}})

	req := sampleRequest()
	req.PlanID = uuid.NewString()

	plan, err := planner.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.PlanID, plan.ID)
	assert.Empty(t, plan.Request.PlanID)

	got, err := planner.Get(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Research, got.Research)
	assert.Equal(t, plan.Itinerary, got.Itinerary)
	assert.Equal(t, plan.Images, got.Images)
	assert.Equal(t, plan.Budget, got.Budget)

	_, err = planner.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = planner.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTripPlanner_DuplicatePlanID(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"singapore research", "singapore days"}}
	planner, _, notifier := newTestPlanner(t, llm, &fakeImages{})
	ctx := context.Background()

	req := sampleRequest()
	req.PlanID = uuid.NewString()
	_, err := planner.Plan(ctx, req)
	require.NoError(t, err)
	eventsBefore := len(notifier.stages())

	other := sampleRequest()
	other.PlanID = req.PlanID
	other.Destination = "Tokyo"
	plan, err := planner.Plan(ctx, other)
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, ErrPlanExists)
	assert.Len(t, llm.calls, 2)
	assert.Len(t, notifier.stages(), eventsBefore)

	got, err := planner.Get(ctx, req.PlanID)
	require.NoError(t, err)
	assert.Equal(t, "Singapore", got.Request.Destination)
	assert.Equal(t, "singapore research", got.Research)
}

// claimingStore saves a competing plan under the same id right after the
// planner checks that the id is free.
type claimingStore struct {
	*SQLPlanStore
	competitor *models.StoredPlan
	claimed    bool
}

func (c *claimingStore) Get(ctx context.Context, id string) (*models.StoredPlan, error) {
	if !c.claimed {
		c.claimed = true
		if err := c.SQLPlanStore.Save(ctx, c.competitor); err != nil {
			return nil, err
		}
		return nil, ErrPlanNotFound
	}
	return c.SQLPlanStore.Get(ctx, id)
}

func TestTripPlanner_PlanIDTakenWhilePlanning(t *testing.T) {
	id := uuid.NewString()
	competitorReq := sampleRequest()
	competitorReq.Destination = "Tokyo"
	competitor := storedPlan(competitorReq, time.Now().UTC(), time.Hour)
	competitor.ID = id

	store := &claimingStore{SQLPlanStore: newTestStore(t), competitor: competitor}
	notifier := &recordingNotifier{}
	planner := NewTripPlannerService(PlannerOptions{
		Store:    store,
		Crew:     NewTravelCrew(&scriptedLLM{}, &fakeSearch{}, zerolog.Nop()),
		Images:   &fakeImages{},
		Notifier: notifier,
		Logger:   zerolog.Nop(),
	})

	req := sampleRequest()
	req.PlanID = id
	plan, err := planner.Plan(context.Background(), req)
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, ErrPlanExists)

	stages := notifier.stages()
	assert.Equal(t, models.StageFailed, stages[len(stages)-1])
	assert.NotContains(t, stages, models.StageCompleted)

	got, err := planner.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", got.Request.Destination)
}

func TestTripPlanner_CleanExpired(t *testing.T) {
	planner, store, _ := newTestPlanner(t, &scriptedLLM{}, &fakeImages{})
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Save(ctx, storedPlan(sampleRequest(), past, time.Hour)))

	plan, err := planner.Plan(ctx, sampleRequest())
	require.NoError(t, err)
	assert.False(t, plan.Cached)

	deleted, err := planner.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = planner.Get(ctx, plan.ID)
	assert.NoError(t, err)
}

func TestCrewInputs(t *testing.T) {
	inputs := crewInputs(sampleRequest())
	assert.Equal(t, "80000", inputs["budget"])
	assert.Equal(t, "5", inputs["days"])
	assert.Equal(t, "2", inputs["travellers"])
	assert.Equal(t, "Singapore", inputs["destination"])
}

func TestCrew_TaskHookFromContext(t *testing.T) {
	var names []string
	ctx := WithTaskHook(context.Background(), func(_ int, task Task) { names = append(names, task.Name) })

	_, err := NewTravelCrew(&scriptedLLM{}, nil, zerolog.Nop()).Kickoff(ctx, tripInputs())
	require.NoError(t, err)
	assert.Equal(t, []string{TaskResearch, TaskItinerary}, names)
}
