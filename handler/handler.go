package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"carevo-bot/internal/domain"
	"carevo-bot/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type MessageHandler interface {
	HandleMessage(ctx context.Context, msg domain.InboundMessage) (usecase.Outcome, error)
}

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ackResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
}

// Handler serves the WhatsApp webhook: GET subscription checks and POST events.
type Handler struct {
	bot         MessageHandler
	params      ParamGetter
	verifyParam string
	logger      *slog.Logger
}

func NewHandler(bot MessageHandler, params ParamGetter, verifyParam string, logger *slog.Logger) (*Handler, error) {
	if bot == nil {
		return nil, errors.New("handler: message handler must not be nil")
	}
	if params == nil {
		return nil, errors.New("handler: param getter must not be nil")
	}
	verifyParam = strings.TrimSpace(verifyParam)
	if verifyParam == "" {
		return nil, errors.New("handler: verify token parameter must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bot: bot, params: params, verifyParam: verifyParam, logger: logger}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	logger := h.logger.With("correlation_id", corrID)

	var resp events.APIGatewayProxyResponse
	switch req.HTTPMethod {
	case http.MethodGet:
		resp = h.verify(ctx, logger, req.QueryStringParameters)
	case http.MethodPost:
		resp = h.receive(ctx, logger, req)
	default:
		resp = jsonResponse(http.StatusMethodNotAllowed, errorResponse{
			Error:   string(usecase.ErrorInvalidInput),
			Message: "method not allowed",
		})
	}
	resp.Headers[correlationHeader] = corrID
	return resp, nil
}

// verify answers the platform's subscription handshake.
func (h *Handler) verify(ctx context.Context, logger *slog.Logger, query map[string]string) events.APIGatewayProxyResponse {
	mode := query["hub.mode"]
	token := query["hub.verify_token"]
	if mode == "" || token == "" {
		return jsonResponse(http.StatusBadRequest, errorResponse{
			Error:   string(usecase.ErrorInvalidInput),
			Message: "missing hub.mode or hub.verify_token",
		})
	}

	want, err := h.params.GetParameter(ctx, h.verifyParam)
	if err != nil {
		logger.Error("failed to load verify token", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{
			Error:   string(usecase.ErrorInternal),
			Message: "verification unavailable",
		})
	}
	if mode != "subscribe" || token != strings.TrimSpace(want) {
		logger.Warn("webhook verification failed", "mode", mode)
		return jsonResponse(http.StatusForbidden, errorResponse{
			Error:   string(usecase.ErrorInvalidInput),
			Message: "forbidden",
		})
	}

	logger.Info("webhook verified")
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       query["hub.challenge"],
	}
}

// receive acknowledges every structurally valid event with 200, whatever
// happens downstream, so the platform does not redeliver it.
func (h *Handler) receive(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return badRequest("body is not valid base64")
		}
		body = string(raw)
	}

	var payload webhookPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return badRequest("invalid JSON body")
	}

	change, ok := payload.firstChange()
	if !ok {
		logger.Warn("webhook event has no changes")
		return badRequest("no changes found in the webhook data")
	}
	if len(change.Value.Statuses) > 0 && len(change.Value.Messages) == 0 {
		logger.Debug("status event ignored", "statuses", len(change.Value.Statuses))
		return jsonResponse(http.StatusOK, ackResponse{Status: "ignored"})
	}

	msg, ok := change.Value.inbound()
	if !ok {
		logger.Warn("webhook event is not a text message")
		return badRequest("missing sender or text")
	}

	outcome, err := h.bot.HandleMessage(ctx, msg)
	if err != nil {
		logger.Error("message processing failed",
			"sender", msg.From,
			"message_id", msg.ID,
			"code", string(usecase.CodeOf(err)),
			"err", err,
		)
		return jsonResponse(http.StatusOK, ackResponse{Status: "failed", Outcome: string(outcome)})
	}
	logger.Info("message processed", "sender", msg.From, "message_id", msg.ID, "outcome", string(outcome))
	return jsonResponse(http.StatusOK, ackResponse{Status: "ok", Outcome: string(outcome)})
}

func badRequest(message string) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusBadRequest, errorResponse{
		Error:   string(usecase.ErrorInvalidInput),
		Message: message,
	})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"encode response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}
