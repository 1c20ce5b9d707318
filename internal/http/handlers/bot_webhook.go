package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zapagenda/zapagenda/internal/bot"
	"github.com/zapagenda/zapagenda/internal/messaging"
	"github.com/zapagenda/zapagenda/internal/observability/metrics"
	"github.com/zapagenda/zapagenda/pkg/logging"
)

var webhookTracer = otel.Tracer("zapagenda.internal.http.handlers.bot_webhook")

// Reply issued when a turn fails internally. The transport always gets a
// document back; the user can simply try again.
const turnFailureMessage = "Desculpe, ocorreu um erro. Por favor, tente novamente."

// ConversationEngine processes one inbound message into a reply.
type ConversationEngine interface {
	HandleMessage(ctx context.Context, from, body string) (bot.Reply, error)
}

// BotWebhookHandler receives inbound WhatsApp webhooks and answers with TwiML.
type BotWebhookHandler struct {
	engine        ConversationEngine
	webhookSecret string
	logger        *logging.Logger
	metrics       *metrics.BotMetrics
}

// NewBotWebhookHandler creates the webhook handler. An empty webhookSecret
// disables signature validation (local development).
func NewBotWebhookHandler(engine ConversationEngine, webhookSecret string, logger *logging.Logger, m *metrics.BotMetrics) *BotWebhookHandler {
	if engine == nil {
		panic("handlers: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BotWebhookHandler{
		engine:        engine,
		webhookSecret: webhookSecret,
		logger:        logger,
		metrics:       m,
	}
}

// HandleInbound handles POST /bot requests.
func (h *BotWebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := webhookTracer.Start(r.Context(), "bot.webhook", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	defer func() {
		h.metrics.ObserveWebhookLatency(time.Since(start).Seconds())
	}()

	if h.webhookSecret != "" {
		if !messaging.ValidateTwilioSignature(r, h.webhookSecret, buildAbsoluteURL(r)) {
			h.logger.Warn("invalid twilio signature")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			span.RecordError(errors.New("invalid twilio signature"))
			return
		}
	}

	msg, err := messaging.ParseInbound(r)
	if err != nil {
		h.logger.Error("failed to parse inbound webhook", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}
	if msg.From == "" {
		err := errors.New("missing sender address")
		h.logger.Error("invalid inbound payload", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}
	span.SetAttributes(
		attribute.String("zapagenda.message_sid", msg.MessageSid),
		attribute.String("zapagenda.from", msg.From),
	)

	reply, err := h.engine.HandleMessage(ctx, msg.From, msg.Body)
	if err != nil {
		// The transport still gets a well-formed reply; the turn left no
		// partial state behind.
		h.logger.Error("turn failed", "error", err, "from", msg.From)
		span.RecordError(err)
		reply = bot.Reply{Messages: []string{turnFailureMessage}}
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(messaging.RenderTwiML(reply.Messages)))
}

// HealthCheck returns a simple health check response.
func (h *BotWebhookHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
