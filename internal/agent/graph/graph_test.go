package graph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-commerce/server/internal/agent/graph/conversations"
	"github.com/Chative-commerce/server/internal/agent/graph/nodes"
	"github.com/Chative-commerce/server/internal/agent/graph/prompts"
	"github.com/Chative-commerce/server/internal/agent/graph/tools"
	"github.com/Chative-commerce/server/internal/agent/llm/llmtest"
	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/agent/repo"
	"github.com/Chative-commerce/server/internal/agent/responders"
	"github.com/Chative-commerce/server/internal/core/retry"
	"github.com/Chative-commerce/server/internal/order"
	"github.com/Chative-commerce/server/internal/repo/sqlite"
	"github.com/Chative-commerce/server/internal/rules"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []model.HandoffEvent
}

func (f *fakeNotifier) NotifyHandoff(_ context.Context, ev model.HandoffEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type harness struct {
	store    *sqlite.Store
	history  *repo.MemoryConversationRepository
	intent   *llmtest.Scripted
	orders   *llmtest.Scripted
	signal   *llmtest.Scripted
	response *llmtest.Scripted
	media    *llmtest.Media
	notifier *fakeNotifier
	runner   Runner
}

func newHarness(t *testing.T, maxTools int) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.UpsertTenant(ctx, model.Tenant{ID: "t1", StoreName: "Pizzaria", Active: true}))
	pizza, err := store.InsertProduct(ctx, model.Product{TenantID: "t1", Name: "Pizza Calabresa", Price: 45})
	require.NoError(t, err)
	_, err = store.InsertProduct(ctx, model.Product{TenantID: "t1", Name: "Coca-Cola", Price: 8})
	require.NoError(t, err)
	borda, err := store.InsertAddon(ctx, model.Addon{Name: "Borda recheada", AdditionalPrice: 10})
	require.NoError(t, err)
	require.NoError(t, store.LinkAddon(ctx, pizza, borda))

	h := &harness{
		store:    store,
		history:  repo.NewMemoryConversationRepository(50),
		intent:   llmtest.New(),
		orders:   llmtest.New(),
		signal:   llmtest.New(),
		response: llmtest.New(),
		media:    &llmtest.Media{},
		notifier: &fakeNotifier{},
	}

	now := func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	catalogTools := tools.NewCatalogTools(store, nil)
	infos, err := tools.ToolInfos(ctx, catalogTools)
	require.NoError(t, err)
	require.NoError(t, h.response.BindTools(infos))

	deps := &nodes.Deps{
		Messages: conversations.NewMessagesManager(h.history, model.ConversationConfig{}),
		Media:    &responders.MediaSummarizer{Analyzer: h.media, Policy: retry.Policy{MaxAttempts: 1}},
		Intent:   responders.NewIntentClassifier(h.intent),
		Signal:   responders.NewSignalClassifier(h.signal),
		Orders:   responders.NewOrderExtractor(h.orders),
		Pending: &order.PendingHandler{
			Addresses: store,
			Orders:    store,
			Prices:    store,
			Now:       now,
		},
		Catalog:   store,
		Rules:     rules.New(store),
		Addresses: store,
		Notifier:  h.notifier,
		ToolNames: prompts.ToolNames{ProductQuery: tools.ProductQueryToolName, Addons: tools.ProductAddonsToolName},
		Now:       now,
	}

	h.runner, err = NewRunner(ctx, &GraphConfig{
		Deps:              deps,
		ResponseModel:     h.response,
		ResponseModelName: "test-model",
		Tools:             catalogTools,
		ToolMaxCalls:      maxTools,
	})
	require.NoError(t, err)
	return h
}

func assistant(content string) *schema.Message {
	return schema.AssistantMessage(content, nil)
}

func input(text string) model.QueryInput {
	return model.QueryInput{
		SessionID: "5511999999999:t1",
		UserID:    "5511999999999",
		TenantID:  "t1",
		MessageID: "wamid.1",
		Text:      text,
		StoreName: "Pizzaria",
	}
}

func TestMenuBranchIsFormulated(t *testing.T) {
	h := newHarness(t, 3)
	h.intent.Then(assistant("(task<||>menu<||>cardápio)<|COMPLETE|>"))
	h.response.Then(assistant(`{"response_text":"Segue nosso cardápio!","human_handoff":false,"send_menu":false}`))

	resp, err := h.runner.Invoke(context.Background(), input("me manda o cardápio"))
	require.NoError(t, err)
	assert.Equal(t, "Segue nosso cardápio!", resp.ResponseText)
	assert.True(t, resp.SendMenu)
	assert.False(t, resp.HumanHandoff)
	assert.True(t, resp.Formulated)

	hist, err := h.history.LoadHistory(context.Background(), "5511999999999:t1")
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "me manda o cardápio", hist.Messages[0].Content)
	assert.Equal(t, "Segue nosso cardápio!", hist.Messages[1].Content)
}

func TestHandoffNotifies(t *testing.T) {
	h := newHarness(t, 3)
	h.intent.Then(assistant("(task<||>falar_com_humano<||>atendente)<|COMPLETE|>"))
	h.response.Then(assistant(`{"response_text":"Já chamo alguém.","human_handoff":false,"send_menu":false}`))

	resp, err := h.runner.Invoke(context.Background(), input("quero falar com um atendente"))
	require.NoError(t, err)
	assert.True(t, resp.HumanHandoff)
	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, "t1", h.notifier.events[0].TenantID)
	assert.Equal(t, "Pizzaria", h.notifier.events[0].StoreName)
}

func TestOrderTakingAddsItemsAndSuggests(t *testing.T) {
	h := newHarness(t, 3)
	h.intent.Then(assistant("(task<||>adicionar_item<||>2 calabresa)<|COMPLETE|>"))
	h.orders.Then(assistant(`{"items":[{"product_name":"Pizza Calabresa","quantity":2}],"address":"","is_final_order":false}`))
	h.response.Then(assistant(`{"response_text":"Anotado! Quer borda recheada?","human_handoff":false,"send_menu":false}`))

	resp, err := h.runner.Invoke(context.Background(), input("2 pizzas de calabresa"))
	require.NoError(t, err)
	require.NotNil(t, resp.Order)
	assert.Equal(t, []model.OrderItem{{ProductName: "Pizza Calabresa", Quantity: 2}}, resp.Order.Items)
	assert.Equal(t, model.StatusOpen, resp.Order.Status)

	calls := h.response.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0][0].Content, "Borda recheada")
	assert.Contains(t, calls[0][0].Content, "2x Pizza Calabresa")
}

func TestConfirmOrderMovesToDeliveryChoice(t *testing.T) {
	h := newHarness(t, 3)
	h.intent.Then(assistant("(task<||>confirmar_pedido<||>só isso)<|COMPLETE|>"))
	h.orders.Then(assistant(`{"items":[],"address":"","is_final_order":true}`))
	h.response.Then(assistant(`{"response_text":"Entrega ou retirada?","human_handoff":false,"send_menu":false}`))

	in := input("só isso")
	in.Order = &model.OrderState{Items: []model.OrderItem{{ProductName: "Coca-Cola", Quantity: 1}}, Status: model.StatusOpen}

	resp, err := h.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingDeliveryMethod, resp.Order.Status)
	// the caller's order is not mutated
	assert.Equal(t, model.StatusOpen, in.Order.Status)
}

func TestItemsThenFinalOrderKeepsCart(t *testing.T) {
	h := newHarness(t, 3)
	h.intent.Then(assistant("(task<||>adicionar_item<||>calabresa e coca)<|COMPLETE|>"))
	h.orders.Then(assistant(`{"items":[{"product_name":"Pizza Calabresa","quantity":1},{"product_name":"Coca-Cola","quantity":2}],"address":"","is_final_order":false}`))
	h.response.Then(assistant(`{"response_text":"Anotado!","human_handoff":false,"send_menu":false}`))
	h.intent.Then(assistant("(task<||>confirmar_pedido<||>fechar)<|COMPLETE|>"))
	h.orders.Then(assistant(`{"items":[],"address":"","is_final_order":true}`))
	h.response.Then(assistant(`{"response_text":"Entrega ou retirada?","human_handoff":false,"send_menu":false}`))

	in := input("uma calabresa e duas cocas")
	in.Order = model.NewOrderState()
	first, err := h.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, first.Order)
	assert.Equal(t, model.StatusOpen, first.Order.Status)

	in = input("pode fechar")
	in.MessageID = "wamid.2"
	in.Order = first.Order
	second, err := h.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, second.Order)
	assert.Equal(t, model.StatusPendingDeliveryMethod, second.Order.Status)
	assert.Equal(t, []model.OrderItem{
		{ProductName: "Pizza Calabresa", Quantity: 1},
		{ProductName: "Coca-Cola", Quantity: 2},
	}, second.Order.Items)
}

func TestFormulatorToolLoop(t *testing.T) {
	h := newHarness(t, 3)
	h.intent.Then(assistant("(task<||>fazer_pergunta_geral<||>mais barato)<|COMPLETE|>"))
	h.response.
		ThenToolCall("", tools.ProductQueryToolName, `{"query_type":" MAIS_BARATO "}`).
		Then(assistant(`{"response_text":"A Coca-Cola é o mais barato.","human_handoff":false,"send_menu":false}`))

	resp, err := h.runner.Invoke(context.Background(), input("qual o produto mais barato?"))
	require.NoError(t, err)
	assert.Equal(t, "A Coca-Cola é o mais barato.", resp.ResponseText)

	calls := h.response.Calls()
	require.Len(t, calls, 2)
	last := calls[1][len(calls[1])-1]
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "Coca-Cola")
}

func TestToolLimitEndsLoop(t *testing.T) {
	h := newHarness(t, 1)
	h.intent.Then(assistant("(task<||>fazer_pergunta_geral<||>produtos)<|COMPLETE|>"))
	h.response.
		ThenToolCall("a", tools.ProductQueryToolName, `{"query_type":"listar_todos"}`).
		ThenToolCall("b", tools.ProductQueryToolName, `{"query_type":"listar_todos"}`)

	resp, err := h.runner.Invoke(context.Background(), input("o que vocês vendem?"))
	require.NoError(t, err)
	assert.Equal(t, nodes.MsgGeneric, resp.ResponseText)
	assert.Len(t, h.response.Calls(), 2)
}

func TestFormulatorFailureKeepsDraft(t *testing.T) {
	h := newHarness(t, 3)
	h.intent.Then(assistant("(task<||>menu<||>cardápio)<|COMPLETE|>"))
	h.response.ThenError(errors.New("upstream unavailable"))

	resp, err := h.runner.Invoke(context.Background(), input("cardápio"))
	require.NoError(t, err)
	assert.Equal(t, nodes.MsgMenu, resp.ResponseText)
	assert.True(t, resp.SendMenu)
}

func TestPendingOrderSkipsFormulator(t *testing.T) {
	h := newHarness(t, 3)
	h.signal.Then(assistant("sim"))

	in := input("sim, pode confirmar")
	in.Order = &model.OrderState{
		Items:          []model.OrderItem{{ProductName: "Pizza Calabresa", Quantity: 1}},
		DeliveryMethod: model.DeliveryPickup,
		Status:         model.StatusPendingFinalConfirmation,
	}

	resp, err := h.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, order.MsgOrderConfirmed, resp.ResponseText)
	assert.False(t, resp.Formulated)
	assert.Equal(t, model.StatusConfirmed, resp.Order.Status)
	assert.Empty(t, resp.Order.Items)
	assert.Empty(t, h.intent.Calls())
	assert.Empty(t, h.response.Calls())

	saved, err := h.store.ListConfirmedOrders(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.InDelta(t, 45.0, saved[0].Total, 0.001)
}

func TestUnsupportedAttachmentEndsEarly(t *testing.T) {
	h := newHarness(t, 3)
	in := input("")
	in.File = []byte("PK")
	in.MimeType = "application/zip"

	resp, err := h.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, responders.MsgUnsupportedFile, resp.ResponseText)
	assert.Empty(t, h.intent.Calls())
	assert.Empty(t, h.media.Mimes)

	n, err := h.history.GetMessageCount(context.Background(), "5511999999999:t1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAudioIsTranscribedBeforeIntent(t *testing.T) {
	h := newHarness(t, 3)
	h.media.Text = "quero o cardápio"
	h.intent.Then(assistant("(task<||>menu<||>cardápio)<|COMPLETE|>"))
	h.response.Then(assistant(`{"response_text":"Aqui está.","human_handoff":false,"send_menu":true}`))

	in := input("")
	in.File = []byte{0x4f, 0x67, 0x67}
	in.MimeType = "audio/ogg; codecs=opus"

	resp, err := h.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, resp.FileSummary)
	assert.Equal(t, "quero o cardápio", resp.FileSummary.SummaryText)
	assert.Equal(t, []string{"audio/ogg"}, h.media.Mimes)

	calls := h.intent.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Mensagem atual: quero o cardápio", calls[0][len(calls[0])-1].Content)
}

func TestSanitizeArguments(t *testing.T) {
	assert.JSONEq(t, `{"query_type":"buscar_por_nome","product_name":"Coca"}`,
		sanitizeArguments(tools.ProductQueryToolName, `{"query_type":" Buscar_Por_Nome ","product_name":" Coca "}`))
	assert.Equal(t, "not json", sanitizeArguments(tools.ProductQueryToolName, "not json"))
	assert.Equal(t, `{"x":1}`, sanitizeArguments("other", `{"x":1}`))
}
