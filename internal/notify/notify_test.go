package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-commerce/server/internal/agent/model"
)

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) NotifyHandoff(context.Context, model.HandoffEvent) error {
	s.calls++
	return s.err
}

func event() model.HandoffEvent {
	return model.HandoffEvent{
		SessionID: "5511_t1",
		UserID:    "5511",
		TenantID:  "t1",
		StoreName: "Pizzaria",
		Message:   "quero falar com alguém",
		At:        time.Date(2024, 5, 10, 18, 30, 0, 0, time.UTC),
	}
}

func TestMultiCallsEveryNotifier(t *testing.T) {
	boom := errors.New("boom")
	a, b := &stubNotifier{err: boom}, &stubNotifier{}

	err := Multi{a, nil, b}.NotifyHandoff(context.Background(), event())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	assert.NoError(t, Multi{}.NotifyHandoff(context.Background(), event()))
}

func TestFormat(t *testing.T) {
	got := Format(event())
	assert.Equal(t, "Atendimento humano solicitado em Pizzaria\nCliente: 5511\nMensagem: quero falar com alguém\n10/05/2024 18:30", got)

	ev := event()
	ev.StoreName, ev.Message = "", " "
	assert.True(t, strings.HasPrefix(Format(ev), "Atendimento humano solicitado em t1\nCliente: 5511\n10/05"))
}

func TestTelegramConfigEnabled(t *testing.T) {
	assert.False(t, TelegramConfig{}.Enabled())
	assert.False(t, TelegramConfig{BotToken: "x"}.Enabled())
	assert.True(t, TelegramConfig{BotToken: "x", AdminChatID: 42}.Enabled())
}

func TestHubBroadcastsHandoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.NotifyHandoff(ctx, event()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type string             `json:"type"`
		Data model.HandoffEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "handoff", got.Type)
	assert.Equal(t, "t1", got.Data.TenantID)
	assert.Equal(t, "Pizzaria", got.Data.StoreName)
}
