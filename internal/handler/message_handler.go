package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"csrhub/internal/middleware"
	"csrhub/internal/model"
	"csrhub/internal/service"
	"csrhub/pkg/response"
)

type MessageHandler struct {
	messageService service.MessageService
	authn          *middleware.Authenticator
}

func NewMessageHandler(messageService service.MessageService, authn *middleware.Authenticator) *MessageHandler {
	return &MessageHandler{messageService: messageService, authn: authn}
}

func (h *MessageHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/projects/:id/messages")
	group.Use(h.authn.RequireRole(model.RoleNGO, model.RoleCorporate))
	{
		group.GET("", h.ListMessages)
		group.POST("", h.SendMessage)
	}
}

// ListMessages handles GET /api/projects/:id/messages
// @Summary      List project messages
// @Description  Conversation between the project's NGO and its funding corporate, oldest first
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Project ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 50)"
// @Success      200    {object}  response.Response{data=service.MessageListResponse}
// @Failure      403    {object}  response.Response
// @Router       /api/projects/{id}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	// the service applies its own defaults to zero values
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := h.messageService.ListMessages(c.Request.Context(), a, c.Param("id"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// SendMessage handles POST /api/projects/:id/messages
// @Summary      Send a project message
// @Description  Stores the message, notifies the counterparty and pushes it live when they are online
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Project ID"
// @Param        payload  body      service.SendMessageRequest  true  "Message"
// @Success      201      {object}  response.Response{data=service.MessageResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/projects/{id}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.messageService.SendMessage(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, msg))
}
