package irrigation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, f Features) (bool, float64, error) {
	args := m.Called(ctx, f)
	return args.Bool(0), args.Get(1).(float64), args.Error(2)
}

type mockAmount struct {
	mock.Mock
}

func (m *mockAmount) PredictAmount(ctx context.Context, f Features) (float64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(float64), args.Error(1)
}

func newMocks(needed bool, prob, amount float64) (*mockClassifier, *mockAmount) {
	c := &mockClassifier{}
	c.On("Classify", mock.Anything, mock.Anything).Return(needed, prob, nil)
	a := &mockAmount{}
	a.On("PredictAmount", mock.Anything, mock.Anything).Return(amount, nil)
	return c, a
}

func TestRecommendIrrigateNowInWindow(t *testing.T) {
	c, a := newMocks(true, 0.87654, 12.3456)
	engine := NewEngine(c, a)

	// Hot and dry: efficiency is poor, but hour 6 is inside the morning window.
	r := Reading{SoilMoistureShallow: 12, SoilMoistureDeep: 20, Temperature: 45, Humidity: 10, Hour: 6, Month: 7}
	rec, err := engine.Recommend(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, ActionIrrigateNow, rec.Action)
	assert.Equal(t, "Irrigate - Optimal timing", rec.Decision)
	assert.True(t, rec.IrrigationNeeded)
	assert.Equal(t, 0.877, rec.Confidence)
	assert.Equal(t, 12.35, rec.AmountLitersPerSqm)
	assert.Less(t, rec.CurrentEfficiency, efficiencyFallbackThreshold)
	assert.Equal(t, RatingFair, rec.EfficiencyRating)
	assert.Equal(t, 7.0, rec.EvapotranspirationRisk)

	c.AssertCalled(t, "Classify", mock.Anything, r.Features())
	a.AssertCalled(t, "PredictAmount", mock.Anything, r.Features())
}

func TestRecommendIrrigateNowOnEfficiency(t *testing.T) {
	c, a := newMocks(true, 0.9, 5)
	engine := NewEngine(c, a)

	rec, err := engine.Recommend(context.Background(), Reading{Temperature: 20, Humidity: 80, Hour: 2, Month: 3})
	require.NoError(t, err)

	assert.Equal(t, ActionIrrigateNow, rec.Action)
	assert.Equal(t, "Irrigate - Good efficiency", rec.Decision)
	assert.Equal(t, RatingExcellent, rec.EfficiencyRating)
}

func TestRecommendSchedule(t *testing.T) {
	c, a := newMocks(true, 0.7, 8)
	engine := NewEngine(c, a)

	rec, err := engine.Recommend(context.Background(), Reading{Temperature: 35, Humidity: 30, Hour: 13, Month: 6})
	require.NoError(t, err)

	assert.Equal(t, ActionSchedule, rec.Action)
	assert.Equal(t, RatingPoor, rec.EfficiencyRating)
	require.NotNil(t, rec.Timing.OptimalHour)
	assert.Equal(t, 5, *rec.Timing.OptimalHour)
}

func TestRecommendRain(t *testing.T) {
	c, a := newMocks(true, 0.6, 4)
	engine := NewEngine(c, a)

	rec, err := engine.Recommend(context.Background(), Reading{Temperature: 25, Humidity: 70, Rainfall: true, Hour: 6, Month: 6})
	require.NoError(t, err)

	assert.Equal(t, ActionNoIrrigationRain, rec.Action)
	assert.Nil(t, rec.Timing.OptimalHour)
}

func TestRecommendNotNeededSkipsAmountPredictor(t *testing.T) {
	c := &mockClassifier{}
	c.On("Classify", mock.Anything, mock.Anything).Return(false, 0.1234, nil)
	a := &mockAmount{}
	engine := NewEngine(c, a)

	rec, err := engine.Recommend(context.Background(), Reading{Temperature: 25, Humidity: 70, Hour: 6, Month: 6})
	require.NoError(t, err)

	assert.Equal(t, ActionNoIrrigationSufficient, rec.Action)
	assert.False(t, rec.IrrigationNeeded)
	assert.Equal(t, 0.0, rec.AmountLitersPerSqm)
	assert.Equal(t, 0.123, rec.Confidence)
	a.AssertNotCalled(t, "PredictAmount", mock.Anything, mock.Anything)
	a.AssertNumberOfCalls(t, "PredictAmount", 0)
}

func TestRecommendNonPositiveAmountIsZero(t *testing.T) {
	c, a := newMocks(true, 0.8, -3.2)
	engine := NewEngine(c, a)

	rec, err := engine.Recommend(context.Background(), Reading{Temperature: 25, Humidity: 70, Hour: 6, Month: 6})
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.AmountLitersPerSqm)
}

func TestRecommendPropagatesPredictorErrors(t *testing.T) {
	boom := errors.New("model unavailable")

	c := &mockClassifier{}
	c.On("Classify", mock.Anything, mock.Anything).Return(false, 0.0, boom)
	_, err := NewEngine(c, &mockAmount{}).Recommend(context.Background(), Reading{Hour: 6, Month: 6})
	require.ErrorIs(t, err, boom)

	c = &mockClassifier{}
	c.On("Classify", mock.Anything, mock.Anything).Return(true, 0.9, nil)
	a := &mockAmount{}
	a.On("PredictAmount", mock.Anything, mock.Anything).Return(0.0, boom)
	_, err = NewEngine(c, a).Recommend(context.Background(), Reading{Hour: 6, Month: 6})
	require.ErrorIs(t, err, boom)
}

func TestRecommendIsIdempotent(t *testing.T) {
	c, a := newMocks(true, 0.66, 3.3)
	engine := NewEngine(c, a)
	r := Reading{SoilMoistureShallow: 30, SoilMoistureDeep: 35, Temperature: 29, Humidity: 48, Hour: 16, Month: 9}

	first, err := engine.Recommend(context.Background(), r)
	require.NoError(t, err)
	second, err := engine.Recommend(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecideBoundaries(t *testing.T) {
	const poor = 0.3
	tests := []struct {
		name     string
		needed   bool
		rainfall bool
		hour     int
		eff      float64
		want     Action
		decision string
	}{
		{"morning opens", true, false, 5, poor, ActionIrrigateNow, "Irrigate - Optimal timing"},
		{"morning closes", true, false, 8, poor, ActionIrrigateNow, "Irrigate - Optimal timing"},
		{"evening opens", true, false, 18, poor, ActionIrrigateNow, "Irrigate - Optimal timing"},
		{"evening closes", true, false, 21, poor, ActionIrrigateNow, "Irrigate - Optimal timing"},
		{"before morning", true, false, 4, poor, ActionSchedule, "Schedule irrigation - Poor timing now"},
		{"after morning", true, false, 9, poor, ActionSchedule, "Schedule irrigation - Poor timing now"},
		{"before evening", true, false, 17, poor, ActionSchedule, "Schedule irrigation - Poor timing now"},
		{"after evening", true, false, 22, poor, ActionSchedule, "Schedule irrigation - Poor timing now"},
		{"efficiency at threshold", true, false, 12, efficiencyFallbackThreshold, ActionSchedule, "Schedule irrigation - Poor timing now"},
		{"efficiency above threshold", true, false, 12, 0.701, ActionIrrigateNow, "Irrigate - Good efficiency"},
		{"rain beats window", true, true, 6, 0.9, ActionNoIrrigationRain, "No irrigation (Rain expected)"},
		{"rain without need", false, true, 6, 0.9, ActionNoIrrigationRain, "No irrigation (Rain expected)"},
		{"not needed", false, false, 6, 0.9, ActionNoIrrigationSufficient, "No irrigation (Sufficient moisture)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, decision := decide(tt.needed, tt.rainfall, tt.hour, tt.eff)
			assert.Equal(t, tt.want, action)
			assert.Equal(t, tt.decision, decision)
		})
	}
}
