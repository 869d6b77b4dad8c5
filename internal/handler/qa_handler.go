package handler

import (
	"context"
	"encoding/json"

	"pdf-qa-be/internal/constant"
	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/pkg/serverutils"
	"pdf-qa-be/internal/service"
	internalWS "pdf-qa-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type QAHandler struct {
	qaService service.IQAService
	hub       *internalWS.Hub
	logger    logger.ILogger
}

func NewQAHandler(qaService service.IQAService, hub *internalWS.Hub, log logger.ILogger) *QAHandler {
	return &QAHandler{
		qaService: qaService,
		hub:       hub,
		logger:    log,
	}
}

// HandleMessage answers one question frame. Failures become error frames; the session stays open.
func (h *QAHandler) HandleMessage(ctx context.Context, clientID string, payload []byte) interface{} {
	var req dto.QuestionMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return invalidFormat(err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return invalidFormat(err)
	}

	res, err := h.qaService.Answer(ctx, &req)
	if err != nil {
		h.logger.Warn("QAHandler", "Question failed", map[string]interface{}{
			"client_id":   clientID,
			"document_id": req.DocumentId,
			"error":       err.Error(),
		})
		return dto.ErrorMessage{
			Error:  constant.MessageQAFailed,
			Detail: err.Error(),
			Code:   constant.CodeQAProcessingError,
		}
	}
	return res
}

func invalidFormat(err error) dto.ErrorMessage {
	return dto.ErrorMessage{
		Error:  constant.MessageInvalidFormat,
		Detail: err.Error(),
		Code:   constant.CodeInvalidMessageFormat,
	}
}

// ServeWs upgrades the request and runs the session until the peer leaves.
func (h *QAHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		clientID := conn.Params("client_id")
		h.logger.Info("QAHandler", "Starting WebSocket session", map[string]interface{}{"client_id": clientID})
		internalWS.ServeWs(h.hub, conn, clientID)
		h.logger.Info("QAHandler", "WebSocket session ended", map[string]interface{}{"client_id": clientID})
	})(c)
}

func (h *QAHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/qa/:client_id", h.ServeWs)
}
