package commit

import (
	"context"
	"errors"
	"testing"
	"time"

	"fridge-chef/internal/pkg/common"
	"fridge-chef/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLog struct {
	mock.Mock
}

func (m *mockLog) Append(ctx context.Context, userID string, entry common.MealLogEntry) (string, error) {
	args := m.Called(ctx, userID, entry)
	return args.String(0), args.Error(1)
}

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) Snapshot(ctx context.Context, userID string) ([]common.Ingredient, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]common.Ingredient)
	return items, args.Error(1)
}

func (m *mockInventory) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func stirFry() common.Recipe {
	return common.Recipe{
		Title:       "Veggie Stir Fry",
		Ingredients: []string{"Broccoli", "Carrot"},
		Steps:       []string{"Chop.", "Cook."},
		Calories:    200,
		Protein:     5,
		Fats:        10,
		Carbs:       25,
	}
}

func pendingSession(r common.Recipe) *Session {
	s := NewSession()
	s.Select(r)
	return &s
}

func newTestWorkflow(log LogStore, inv InventoryStore, m *metrics.Metrics) *Workflow {
	return NewWorkflow(log, inv, WithMetrics(m), WithClock(func() time.Time { return fixedNow }), WithConcurrency(2))
}

func TestConfirmSucceeded(t *testing.T) {
	log := new(mockLog)
	inv := new(mockInventory)
	m := metrics.Nop()

	want := common.NewMealLogEntry(stirFry(), common.CategoryLunch, fixedNow)
	log.On("Append", mock.Anything, "u1", want).Return("log-1", nil).Once()
	inv.On("Snapshot", mock.Anything, "u1").Return([]common.Ingredient{
		{ID: "x1", Name: "Fresh Broccoli Crowns"},
		{ID: "x2", Name: "Baby carrots"},
		{ID: "x3", Name: "Milk"},
	}, nil)
	inv.On("Delete", mock.Anything, "u1", "x1").Return(nil).Once()
	inv.On("Delete", mock.Anything, "u1", "x2").Return(nil).Once()

	s := pendingSession(stirFry())
	require.NoError(t, s.SetCategory(common.CategoryLunch))

	out, err := newTestWorkflow(log, inv, m).Confirm(context.Background(), "u1", s)
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, out.Status)
	assert.Equal(t, "log-1", out.LogID)
	assert.Equal(t, []string{"x1", "x2"}, out.RemovedIDs)
	assert.Empty(t, out.FailedIDs)
	assert.Empty(t, out.Warning)
	assert.Contains(t, out.Message, "Veggie Stir Fry")
	assert.Contains(t, out.Message, "Lunch")
	assert.Equal(t, StateIdle, s.State)
	assert.Nil(t, s.Recipe)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commits.WithLabelValues("succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngredientDrops.WithLabelValues("ok")))
	log.AssertExpectations(t)
	inv.AssertExpectations(t)
	inv.AssertNotCalled(t, "Delete", mock.Anything, "u1", "x3")
}

func TestConfirmLogFailureIssuesNoDeletes(t *testing.T) {
	log := new(mockLog)
	inv := new(mockInventory)
	m := metrics.Nop()

	log.On("Append", mock.Anything, "u1", mock.Anything).Return("", errors.New("quota exceeded"))

	s := pendingSession(stirFry())
	out, err := newTestWorkflow(log, inv, m).Confirm(context.Background(), "u1", s)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, out.Status)
	assert.NotContains(t, out.Message, "quota")
	assert.Equal(t, StateIdle, s.State)
	inv.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
	inv.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commits.WithLabelValues("failed")))
}

func TestConfirmDeleteFailureDoesNotShortCircuit(t *testing.T) {
	log := new(mockLog)
	inv := new(mockInventory)

	r := stirFry()
	r.Ingredients = []string{"Broccoli", "Carrot", "Onion", "Garlic"}

	log.On("Append", mock.Anything, "u1", mock.Anything).Return("log-1", nil)
	inv.On("Snapshot", mock.Anything, "u1").Return([]common.Ingredient{
		{ID: "a", Name: "Broccoli"},
		{ID: "b", Name: "Carrot"},
		{ID: "c", Name: "Onion"},
		{ID: "d", Name: "Garlic"},
	}, nil)
	inv.On("Delete", mock.Anything, "u1", "a").Return(errors.New("timeout")).Once()
	inv.On("Delete", mock.Anything, "u1", "b").Return(nil).Once()
	inv.On("Delete", mock.Anything, "u1", "c").Return(nil).Once()
	inv.On("Delete", mock.Anything, "u1", "d").Return(nil).Once()

	out, err := newTestWorkflow(log, inv, metrics.Nop()).Confirm(context.Background(), "u1", pendingSession(r))
	require.NoError(t, err)

	assert.Equal(t, StatePartiallyFailed, out.Status)
	assert.Equal(t, []string{"a"}, out.FailedIDs)
	assert.Equal(t, []string{"b", "c", "d"}, out.RemovedIDs)
	assert.NotEmpty(t, out.Warning)
	inv.AssertNumberOfCalls(t, "Delete", 4)
}

func TestConfirmSnapshotFailureIsSoft(t *testing.T) {
	log := new(mockLog)
	inv := new(mockInventory)

	log.On("Append", mock.Anything, "u1", mock.Anything).Return("log-1", nil)
	inv.On("Snapshot", mock.Anything, "u1").Return(nil, errors.New("unavailable"))

	out, err := newTestWorkflow(log, inv, metrics.Nop()).Confirm(context.Background(), "u1", pendingSession(stirFry()))
	require.NoError(t, err)
	assert.Equal(t, StatePartiallyFailed, out.Status)
	assert.Equal(t, "log-1", out.LogID)
}

func TestConfirmNoMatchesIsSuccess(t *testing.T) {
	log := new(mockLog)
	inv := new(mockInventory)

	log.On("Append", mock.Anything, "u1", mock.Anything).Return("log-1", nil)
	inv.On("Snapshot", mock.Anything, "u1").Return([]common.Ingredient{{ID: "m", Name: "Milk"}}, nil)

	out, err := newTestWorkflow(log, inv, metrics.Nop()).Confirm(context.Background(), "u1", pendingSession(stirFry()))
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, out.Status)
	assert.Empty(t, out.RemovedIDs)
	inv.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmPreconditions(t *testing.T) {
	invalid := stirFry()
	invalid.Steps = nil

	tests := []struct {
		name    string
		userID  string
		session func() *Session
		want    error
	}{
		{"idle", "u1", func() *Session { s := NewSession(); return &s }, ErrNotPending},
		{"no user", "", func() *Session { return pendingSession(stirFry()) }, ErrNoUser},
		{"no recipe", "u1", func() *Session { return &Session{State: StateCategorySelectionPending, Category: common.CategoryDinner} }, ErrNoRecipe},
		{"invalid recipe", "u1", func() *Session { return pendingSession(invalid) }, ErrNoRecipe},
		{"no category", "u1", func() *Session { s := pendingSession(stirFry()); s.Category = ""; return s }, ErrNoCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := new(mockLog)
			inv := new(mockInventory)
			s := tt.session()
			before := *s

			_, err := newTestWorkflow(log, inv, metrics.Nop()).Confirm(context.Background(), tt.userID, s)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsPrecondition(err))
			assert.Equal(t, before, *s)
			log.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
			inv.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
		})
	}
}

func TestSessionTransitions(t *testing.T) {
	s := NewSession()
	assert.False(t, s.Pending())
	assert.ErrorIs(t, s.SetCategory(common.CategorySnack), ErrNotPending)

	s.Select(stirFry())
	assert.True(t, s.Pending())
	assert.Equal(t, common.CategoryBreakfast, s.Category)

	require.NoError(t, s.SetCategory(common.CategoryDinner))
	assert.Equal(t, common.CategoryDinner, s.Category)
	assert.True(t, common.IsValidationError(s.SetCategory("Brunch")))
	assert.Equal(t, common.CategoryDinner, s.Category)

	s.Cancel()
	assert.Equal(t, NewSession(), s)
}

func TestMatchIngredients(t *testing.T) {
	inventory := []common.Ingredient{
		{ID: "x1", Name: "Fresh Broccoli Crowns"},
		{ID: "x2", Name: "Egg"},
		{ID: "x3", Name: "Olive Oil"},
		{ID: "x4", Name: "!!!"},
		{ID: "", Name: "Broccoli"},
	}

	tests := []struct {
		name   string
		recipe []string
		want   []string
	}{
		{"substring of inventory name", []string{"Broccoli"}, []string{"x1"}},
		{"inventory name inside recipe text", []string{"2 large eggs, beaten"}, []string{"x2"}},
		{"punctuation and case ignored", []string{"OLIVE-OIL"}, []string{"x3"}},
		{"no match", []string{"Saffron"}, []string{}},
		{"matched once", []string{"broccoli", "broccoli crowns"}, []string{"x1"}},
		{"blank names ignored", []string{"", "  "}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchIngredients(tt.recipe, inventory))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "freshbroccolicrowns", Normalize("Fresh Broccoli Crowns"))
	assert.Equal(t, "jalapeño2", Normalize("Jalapeño #2"))
	assert.Equal(t, "", Normalize(" - "))
}
