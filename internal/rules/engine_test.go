package rules

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-commerce/server/internal/agent/model"
)

type fakeStore struct {
	addons map[int64][]model.Addon
	promos []model.Promotion
	prices map[string]float64
	err    error
}

func (f *fakeStore) GetLinkedAddons(_ context.Context, id int64) ([]model.Addon, error) {
	return f.addons[id], f.err
}

func (f *fakeStore) GetActivePromotions(context.Context, string) ([]model.Promotion, error) {
	return f.promos, f.err
}

func (f *fakeStore) GetProductPrice(_ context.Context, _ string, name string) (float64, error) {
	return f.prices[name], nil
}

// 2025-03-03 is a Monday.
var monday = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

func newEngine(s *fakeStore) *Engine {
	e := New(s)
	e.Now = func() time.Time { return monday }
	return e
}

func TestContextualSuggestions(t *testing.T) {
	e := newEngine(&fakeStore{addons: map[int64][]model.Addon{
		1: {{ID: 9, Name: "Borda recheada", AdditionalPrice: 5}, {ID: 10, Name: "Catupiry extra", AdditionalPrice: 4}},
	}})

	got, err := e.ContextualSuggestions(context.Background(), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Suggestion{
		{Name: "Catupiry extra", AdditionalPrice: 4},
		{Name: "Borda recheada", AdditionalPrice: 5},
	}, got)

	none, err := e.ContextualSuggestions(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestApplicablePromotions(t *testing.T) {
	s := &fakeStore{
		prices: map[string]float64{"Pizza": 40, "Coca": 8},
		promos: []model.Promotion{
			{Name: "Segunda", DescriptionAI: "10% na segunda", ConditionJSON: `{"tipo":"DIA_SEMANA","dias":["MON"]}`, Active: true},
			{Name: "Sabado", ConditionJSON: `{"tipo":"DIA_SEMANA","dias":["SAT"]}`, Active: true},
			{Name: "Sempre", ConditionJSON: "", Active: true},
			{Name: "Minimo", ConditionJSON: `{"tipo":"VALOR_MINIMO","valor":80}`, Active: true},
			{Name: "Combo", ConditionJSON: `{"tipo":"COMBO_PRODUTOS","produtos":["pizza","COCA"]}`, Active: true},
			{Name: "Desconhecida", ConditionJSON: `{"tipo":"LUA_CHEIA"}`, Active: true},
			{Name: "Quebrada", ConditionJSON: `{"tipo":`, Active: true},
			{Name: "Inativa", ConditionJSON: "", Active: false},
		},
	}
	e := newEngine(s)
	o := &model.OrderState{Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 2}, {ProductName: "Coca", Quantity: 1}}}

	got, err := e.ApplicablePromotions(context.Background(), "t1", o)
	require.NoError(t, err)

	var names []string
	for _, p := range got {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Segunda", "Sempre", "Minimo", "Combo"}, names)
}

func TestApplicablePromotionsIsIdempotent(t *testing.T) {
	s := &fakeStore{
		prices: map[string]float64{"Pizza": 40},
		promos: []model.Promotion{
			{Name: "Segunda", ConditionJSON: `{"tipo":"DIA_SEMANA","dias":["MON"]}`, ActionJSON: `{"tipo":"DESCONTO_FIXO","valor":5}`, Active: true},
			{Name: "Minimo", ConditionJSON: `{"tipo":"VALOR_MINIMO","valor":30}`, Active: true},
		},
	}
	e := newEngine(s)
	o := &model.OrderState{Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 1}}}

	first, err := e.ApplicablePromotions(context.Background(), "t1", o)
	require.NoError(t, err)
	second, err := e.ApplicablePromotions(context.Background(), "t1", o)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Len(t, o.Items, 1)
}

func TestApplicablePromotionsAttachDiscountedTotal(t *testing.T) {
	s := &fakeStore{
		prices: map[string]float64{"Pizza": 40, "Coca": 8},
		promos: []model.Promotion{
			{Name: "Segunda", ConditionJSON: `{"tipo":"DIA_SEMANA","dias":["MON"]}`, ActionJSON: `{"tipo":"DESCONTO_PERCENTUAL","valor":10}`, Active: true},
			{Name: "Frete", ConditionJSON: "", ActionJSON: `{"tipo":"FRETE_GRATIS"}`, Active: true},
		},
	}
	e := newEngine(s)
	o := &model.OrderState{Items: []model.OrderItem{{ProductName: "Pizza", Quantity: 2}, {ProductName: "Coca", Quantity: 1}}}

	got, err := e.ApplicablePromotions(context.Background(), "t1", o)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 88.0, got[0].Subtotal)
	require.NotNil(t, got[0].DiscountedTotal)
	assert.InDelta(t, 79.2, *got[0].DiscountedTotal, 1e-9)

	assert.Zero(t, got[1].Subtotal)
	assert.Nil(t, got[1].DiscountedTotal)

	empty, err := e.ApplicablePromotions(context.Background(), "t1", model.NewOrderState())
	require.NoError(t, err)
	require.Len(t, empty, 2)
	assert.Nil(t, empty[0].DiscountedTotal)
}

func TestApplicablePromotionsStoreError(t *testing.T) {
	e := newEngine(&fakeStore{err: errors.New("boom")})
	got, err := e.ApplicablePromotions(context.Background(), "t1", model.NewOrderState())
	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestMinimumValueBelowThreshold(t *testing.T) {
	e := newEngine(&fakeStore{prices: map[string]float64{"Coca": 8}})
	ec := EvalContext{Ctx: context.Background(), Order: &model.OrderState{Items: []model.OrderItem{{ProductName: "Coca", Quantity: 1}}}, Prices: e.store, Now: monday}
	assert.False(t, e.Evaluate(ec, `{"tipo":"VALOR_MINIMO","valor":50}`))
	assert.False(t, e.Evaluate(ec, `{"tipo":"VALOR_MINIMO"}`))
}

func TestCustomConditionPanicIsContained(t *testing.T) {
	e := newEngine(&fakeStore{})
	e.RegisterCondition("EXPLODE", func(EvalContext, json.RawMessage) (bool, error) { panic("kaboom") })
	assert.False(t, e.Evaluate(EvalContext{Now: monday}, `{"tipo":"EXPLODE"}`))
}

func TestApplyActions(t *testing.T) {
	e := newEngine(&fakeStore{})
	assert.InDelta(t, 90.0, e.Apply(`{"tipo":"DESCONTO_PERCENTUAL","valor":10}`, 100), 1e-9)
	assert.Equal(t, 95.0, e.Apply(`{"tipo":"DESCONTO_FIXO","valor":5}`, 100))
	assert.Equal(t, 0.0, e.Apply(`{"tipo":"DESCONTO_FIXO","valor":500}`, 100))
	assert.Equal(t, 100.0, e.Apply(`{"tipo":"FRETE_GRATIS"}`, 100))
	assert.Equal(t, 100.0, e.Apply(`{"tipo":"DESCONTO_PERCENTUAL"}`, 100))
	assert.Equal(t, 100.0, e.Apply(`not json`, 100))
	assert.Equal(t, 100.0, e.Apply("", 100))
}
