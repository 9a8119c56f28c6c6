package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/orchestrator"
)

type fakeCatalog struct {
	tenants map[string]*model.Tenant
	menu    *model.MenuImage
	err     error
}

func (f *fakeCatalog) GetTenant(_ context.Context, id string) (*model.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tenants[id], nil
}

func (f *fakeCatalog) GetLatestMenuImage(context.Context, string) (*model.MenuImage, error) {
	return f.menu, nil
}

type fakeProcessor struct {
	mu   sync.Mutex
	got  []orchestrator.Request
	resp *model.AIResponse
	err  error
}

func (f *fakeProcessor) ProcessMessage(_ context.Context, req orchestrator.Request) (*model.AIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	return f.resp, f.err
}

type fakeLog struct {
	mu   sync.Mutex
	recs []model.Interaction
	err  error
}

func (f *fakeLog) Exists(context.Context, string) (bool, error) { return false, nil }

func (f *fakeLog) Append(_ context.Context, rec model.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func newCatalog() *fakeCatalog {
	return &fakeCatalog{tenants: map[string]*model.Tenant{
		"t1":  {ID: "t1", StoreName: "Pizzaria Bella", Personality: "Seja simpático.", Active: true},
		"off": {ID: "off", StoreName: "Fechada", Active: false},
	}}
}

func post(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validBody() map[string]any {
	return map[string]any{
		"message_user":        "quero uma pizza",
		"tenant_id":           "t1",
		"user_phone":          "5511999999999",
		"whatsapp_message_id": "wamid.1",
	}
}

func decodeParts(t *testing.T, rec *httptest.ResponseRecorder) []Part {
	t.Helper()
	var parts []Part
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parts))
	return parts
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	h := NewRouter(Options{Processor: &fakeProcessor{}, Catalog: newCatalog()})

	body := validBody()
	delete(body, "user_phone")
	rec := post(t, h, body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "UserPhone")
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	h := NewRouter(Options{Processor: &fakeProcessor{}, Catalog: newCatalog()})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWebhookUnknownOrInactiveTenant(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewRouter(Options{Processor: proc, Catalog: newCatalog()})

	for _, id := range []string{"missing", "off"} {
		body := validBody()
		body["tenant_id"] = id
		rec := post(t, h, body)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
		assert.Contains(t, rec.Body.String(), id)
	}
	assert.Empty(t, proc.got)
}

func TestWebhookTenantLookupFailure(t *testing.T) {
	cat := newCatalog()
	cat.err = errors.New("disk on fire")
	h := NewRouter(Options{Processor: &fakeProcessor{}, Catalog: cat})

	rec := post(t, h, validBody())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestWebhookTextReplyRecordsInteraction(t *testing.T) {
	proc := &fakeProcessor{resp: &model.AIResponse{ResponseText: "Olá! Qual sabor?"}}
	log := &fakeLog{}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	h := NewRouter(Options{
		Processor:    proc,
		Catalog:      newCatalog(),
		Interactions: log,
		Now:          func() time.Time { return now },
	})

	lat, lng := -23.5, -46.6
	body := validBody()
	body["latitude"] = lat
	body["longitude"] = lng
	rec := post(t, h, body)

	require.Equal(t, http.StatusOK, rec.Code)
	parts := decodeParts(t, rec)
	require.Len(t, parts, 1)
	assert.Equal(t, Part{PartID: 1, Type: PartText, TextContent: "Olá! Qual sabor?"}, parts[0])

	require.Len(t, proc.got, 1)
	got := proc.got[0]
	assert.Equal(t, "5511999999999", got.UserID)
	assert.Equal(t, "wamid.1", got.MessageID)
	assert.Equal(t, "Seja simpático.", got.Personality)
	require.NotNil(t, got.Latitude)
	assert.Equal(t, lat, *got.Latitude)
	assert.Nil(t, got.File)

	require.Len(t, log.recs, 1)
	assert.Equal(t, "wamid.1", log.recs[0].MessageID)
	assert.Equal(t, "Olá! Qual sabor?", log.recs[0].AIText)
	assert.Equal(t, now, log.recs[0].CreatedAt)
	assert.NotEmpty(t, log.recs[0].ID)
}

func TestWebhookDecodesAttachment(t *testing.T) {
	proc := &fakeProcessor{resp: &model.AIResponse{ResponseText: "ok"}}
	h := NewRouter(Options{Processor: proc, Catalog: newCatalog()})

	body := validBody()
	body["message_base64"] = base64.StdEncoding.EncodeToString([]byte("audio-bytes"))
	body["mimetype"] = "audio/ogg"
	rec := post(t, h, body)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, proc.got, 1)
	assert.Equal(t, []byte("audio-bytes"), proc.got[0].File)
	assert.Equal(t, "audio/ogg", proc.got[0].MimeType)
}

func TestWebhookIgnoresBadBase64(t *testing.T) {
	proc := &fakeProcessor{resp: &model.AIResponse{ResponseText: "ok"}}
	h := NewRouter(Options{Processor: proc, Catalog: newCatalog()})

	body := validBody()
	body["message_base64"] = "%%%not base64"
	body["mimetype"] = "image/png"
	rec := post(t, h, body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, proc.got[0].File)
	assert.Empty(t, proc.got[0].MimeType)
}

func TestWebhookMenuAndHandoffParts(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G'}
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer images.Close()

	cat := newCatalog()
	cat.menu = &model.MenuImage{TenantID: "t1", URL: images.URL + "/menu.png"}
	proc := &fakeProcessor{resp: &model.AIResponse{
		ResponseText: "Claro! Aqui está o nosso cardápio.",
		SendMenu:     true,
		HumanHandoff: true,
	}}
	h := NewRouter(Options{Processor: proc, Catalog: cat, HTTPClient: images.Client()})

	rec := post(t, h, validBody())
	require.Equal(t, http.StatusOK, rec.Code)

	parts := decodeParts(t, rec)
	require.Len(t, parts, 3)
	assert.Equal(t, PartText, parts[0].Type)

	assert.Equal(t, 2, parts[1].PartID)
	assert.Equal(t, PartFile, parts[1].Type)
	assert.True(t, parts[1].SendMenu)
	require.NotNil(t, parts[1].FileDetails)
	assert.Equal(t, "menu_image", parts[1].FileDetails.RetrievalKey)
	assert.Equal(t, "image/png", parts[1].FileDetails.FileType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(img), parts[1].FileDetails.Base64Content)

	assert.Equal(t, Part{PartID: 3, Type: PartValidation, HumanHandoff: true}, parts[2])
}

func TestWebhookMenuWithoutImageSkipsFilePart(t *testing.T) {
	proc := &fakeProcessor{resp: &model.AIResponse{ResponseText: "cardápio", SendMenu: true}}
	h := NewRouter(Options{Processor: proc, Catalog: newCatalog()})

	parts := decodeParts(t, post(t, h, validBody()))
	require.Len(t, parts, 1)
	assert.Equal(t, PartText, parts[0].Type)
}

func TestWebhookDuplicateSkipsInteraction(t *testing.T) {
	proc := &fakeProcessor{resp: &model.AIResponse{ResponseText: orchestrator.MsgDuplicate, Duplicate: true}}
	log := &fakeLog{}
	h := NewRouter(Options{Processor: proc, Catalog: newCatalog(), Interactions: log})

	rec := post(t, h, validBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orchestrator.MsgDuplicate, decodeParts(t, rec)[0].TextContent)
	assert.Empty(t, log.recs)
}

func TestWebhookToleratesRecordedInteraction(t *testing.T) {
	proc := &fakeProcessor{resp: &model.AIResponse{ResponseText: "ok"}}
	log := &fakeLog{err: model.ErrDuplicateMessage}
	h := NewRouter(Options{Processor: proc, Catalog: newCatalog(), Interactions: log})

	rec := post(t, h, validBody())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookProcessingInterrupted(t *testing.T) {
	proc := &fakeProcessor{
		resp: &model.AIResponse{ResponseText: "generic"},
		err:  context.DeadlineExceeded,
	}
	log := &fakeLog{}
	h := NewRouter(Options{Processor: proc, Catalog: newCatalog(), Interactions: log})

	rec := post(t, h, validBody())
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Empty(t, log.recs)
}

func TestHealth(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	h := NewRouter(Options{Health: map[string]Pinger{"store": ok}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"store":"ok"}}`, rec.Body.String())

	h = NewRouter(Options{Health: map[string]Pinger{"store": ok, "redis": down}})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"store":"ok","redis":"down"}}`, rec.Body.String())
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := NewRouter(Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Requested resource not found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ai", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
