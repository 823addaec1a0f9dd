package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/ai"
	"github.com/spec-kit/guest-inbox/internal/analytics"
	"github.com/spec-kit/guest-inbox/internal/api/http/handlers"
	"github.com/spec-kit/guest-inbox/internal/events"
	"github.com/spec-kit/guest-inbox/internal/observability"
	"github.com/spec-kit/guest-inbox/internal/repository/memory"
	"github.com/spec-kit/guest-inbox/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	ledger := events.NewLedger(events.LedgerDependencies{Events: store.Events(), Dispatcher: dispatcher, Logger: logger})

	messages := service.NewMessageService(service.MessageDependencies{
		ConversationRepo: store.Conversations(),
		MessageRepo:      store.Messages(),
		Ledger:           ledger,
		Logger:           logger,
	})
	replies := service.NewReplyService(service.ReplyDependencies{
		ConversationRepo: store.Conversations(),
		MessageRepo:      store.Messages(),
		Ledger:           ledger,
		Logger:           logger,
		MockFallback:     true,
	})
	engine := service.NewRuleEngine(service.RuleEngineDependencies{
		RuleRepo:         store.Rules(),
		ConversationRepo: store.Conversations(),
		MessageRepo:      store.Messages(),
		MessageService:   messages,
		ReplyService:     replies,
		Ledger:           ledger,
		Logger:           logger,
	})
	ingest := service.NewIngestionService(service.IngestionDependencies{
		ConversationRepo: store.Conversations(),
		MessageService:   messages,
		RuleEngine:       engine,
		Ledger:           ledger,
		Logger:           logger,
	})
	rules := service.NewRuleService(service.RuleDependencies{RuleRepo: store.Rules(), Logger: logger})
	aggregator := analytics.NewAggregator(analytics.Dependencies{
		MessageRepo: store.Messages(),
		EventRepo:   store.Events(),
		RuleRepo:    store.Rules(),
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:        handlers.NewHealthHandler("guest-inbox", "test", nil, nil, metrics),
		Messages:      handlers.NewMessagesHandler(ingest, engine),
		Conversations: handlers.NewConversationsHandler(messages, replies),
		Rules:         handlers.NewRulesHandler(rules),
		Analytics:     handlers.NewAnalyticsHandler(aggregator),
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data envelope: %v", body)
	return d
}

func TestHealthReportsDisabledDependencies(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, fiber.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])
}

func TestIngestValidation(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, fiber.MethodPost, "/api/messages/incoming", map[string]any{"content": "hi"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	assert.Equal(t, "Missing required fields: content, channel, contactId", errBody["message"])
	details := errBody["details"].(map[string]any)
	assert.Contains(t, details, "channel")
	assert.Contains(t, details, "contactId")
}

func TestIngestRejectsUnknownContentType(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, fiber.MethodPost, "/api/messages/incoming", map[string]any{
		"content":     "see attached",
		"channel":     "WEB",
		"contactId":   "guest-1",
		"contentType": "sticker",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "contentType")

	status, _ = do(t, app, fiber.MethodPost, "/api/messages/incoming", map[string]any{
		"content":     "photo of the view",
		"channel":     "WEB",
		"contactId":   "guest-1",
		"contentType": "image",
	})
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestIngestRunsRulesAndThreadsConversation(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, fiber.MethodPost, "/api/rules", map[string]any{
		"name":       "Welcome",
		"conditions": []map[string]any{{"type": "keyword", "value": "hello"}},
		"actions":    []map[string]any{{"type": "template_reply", "template": "Welcome! You wrote us on {{channel}}."}},
		"priority":   10,
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body := do(t, app, fiber.MethodPost, "/api/messages/incoming", map[string]any{
		"content":   "Hello there",
		"channel":   "web",
		"contactId": "guest-1",
	})
	require.Equal(t, fiber.StatusCreated, status)
	first := data(t, body)
	assert.Equal(t, true, first["conversationCreated"])
	assert.EqualValues(t, 1, first["rulesEvaluated"])
	assert.EqualValues(t, 1, first["rulesMatched"])
	replies := first["autoReplies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, "Welcome! You wrote us on WEB.", replies[0].(map[string]any)["reply"])

	convID := first["conversationId"].(string)
	status, body = do(t, app, fiber.MethodPost, "/api/messages/incoming", map[string]any{
		"content":   "Is breakfast included?",
		"channel":   "WEB",
		"contactId": "guest-1",
	})
	require.Equal(t, fiber.StatusCreated, status)
	second := data(t, body)
	assert.Equal(t, false, second["conversationCreated"])
	assert.Equal(t, convID, second["conversationId"])
	assert.EqualValues(t, 0, second["rulesMatched"])

	status, body = do(t, app, fiber.MethodGet, "/api/conversations/"+convID, nil)
	require.Equal(t, fiber.StatusOK, status)
	thread := data(t, body)
	assert.Len(t, thread["messages"].([]any), 3)
}

func TestConversationLifecycle(t *testing.T) {
	app := newTestApp(t)

	_, body := do(t, app, fiber.MethodPost, "/api/messages/incoming", map[string]any{
		"content":   "I would like to book a room for two nights",
		"channel":   "EMAIL",
		"contactId": "guest@example.com",
		"subject":   "Booking",
	})
	convID := data(t, body)["conversationId"].(string)

	status, body := do(t, app, fiber.MethodPost, "/api/conversations/"+convID+"/suggest-reply", nil)
	require.Equal(t, fiber.StatusOK, status)
	suggestion := data(t, body)
	assert.Equal(t, true, suggestion["isMock"])
	assert.Equal(t, ai.MockBookingReply, suggestion["suggestion"])

	status, body = do(t, app, fiber.MethodPost, "/api/conversations/"+convID+"/messages", map[string]any{"content": "Sure, which dates?"})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "OUTGOING", data(t, body)["direction"])

	status, body = do(t, app, fiber.MethodPatch, "/api/conversations/"+convID+"/status", map[string]any{"status": "closed"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "CLOSED", data(t, body)["status"])

	status, body = do(t, app, fiber.MethodGet, "/api/conversations?status=OPEN,PENDING", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])

	status, body = do(t, app, fiber.MethodGet, "/api/analytics", nil)
	require.Equal(t, fiber.StatusOK, status)
	report := data(t, body)
	assert.EqualValues(t, 2, report["totalMessages"])
	assert.EqualValues(t, 1, report["messagesReceived"])
	assert.EqualValues(t, 1, report["messagesSent"])
	assert.EqualValues(t, 1, report["aiAssistedReplies"])
}

func TestUnknownResourcesRenderNotFound(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, fiber.MethodGet, "/api/conversations/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])

	status, body = do(t, app, fiber.MethodPost, "/api/rules/missing/toggle", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])

	status, _ = do(t, app, fiber.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRuleRejectsUnknownActionType(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, fiber.MethodPost, "/api/rules", map[string]any{
		"name":       "Broken",
		"conditions": []map[string]any{{"type": "keyword", "value": "x"}},
		"actions":    []map[string]any{{"type": "send_fax"}},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.True(t, strings.Contains(body["error"].(map[string]any)["message"].(string), "send_fax"))
}
