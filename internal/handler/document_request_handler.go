package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"csrhub/internal/middleware"
	"csrhub/internal/model"
	"csrhub/internal/service"
	"csrhub/pkg/pagination"
	"csrhub/pkg/response"
)

type DocumentRequestHandler struct {
	requestService service.DocumentRequestService
	authn          *middleware.Authenticator
}

func NewDocumentRequestHandler(requestService service.DocumentRequestService, authn *middleware.Authenticator) *DocumentRequestHandler {
	return &DocumentRequestHandler{requestService: requestService, authn: authn}
}

func (h *DocumentRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/document-requests")
	group.Use(h.authn.RequireRole())
	{
		group.POST("", h.authn.RequireRole(model.RoleCorporate), h.CreateRequest)
		group.GET("", h.ListRequests)
		group.POST("/:id/upload", h.authn.RequireRole(model.RoleNGO), h.UploadDocument)
		group.PUT("/:id/review", h.authn.RequireRole(model.RoleCorporate, model.RoleAdmin), h.ReviewRequest)
	}
}

// CreateRequest handles POST /api/document-requests
// @Summary      Request a document from an NGO
// @Description  Listed documents also create or link the matching checklist slot. Custom requests need a description.
// @Tags         document-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateDocumentRequestRequest  true  "Request"
// @Success      201      {object}  response.Response{data=service.DocumentRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/document-requests [post]
func (h *DocumentRequestHandler) CreateRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateDocumentRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.requestService.RequestDocument(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListRequests handles GET /api/document-requests
// @Summary      List document requests
// @Description  NGOs see requests addressed to them, corporates see their own, admins see all
// @Tags         document-requests
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  query     string  false  "Filter by project"
// @Param        status      query     string  false  "Filter by status"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=service.DocumentRequestListResponse}
// @Router       /api/document-requests [get]
func (h *DocumentRequestHandler) ListRequests(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	res, err := h.requestService.ListRequests(c.Request.Context(), a, service.DocumentRequestFilter{
		NGOID:       c.Query("ngo_id"),
		CorporateID: c.Query("corporate_id"),
		ProjectID:   c.Query("project_id"),
		Status:      c.Query("status"),
		Page:        p.Page,
		Limit:       p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// UploadDocument handles POST /api/document-requests/:id/upload
// @Summary      Upload a requested document
// @Tags         document-requests
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Request ID"
// @Param        file  formData  file    true  "Document (PDF, JPEG, PNG, max 5 MB)"
// @Success      200   {object}  response.Response{data=service.DocumentRequestResponse}
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /api/document-requests/{id}/upload [post]
func (h *DocumentRequestHandler) UploadDocument(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	file, src, err := formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	defer src.Close()

	res, err := h.requestService.UploadRequestedDocument(c.Request.Context(), a, c.Param("id"), file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ReviewRequest handles PUT /api/document-requests/:id/review
// @Summary      Verify or reject an uploaded document
// @Tags         document-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                                true  "Request ID"
// @Param        payload  body      service.ReviewDocumentRequestRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=service.DocumentRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/document-requests/{id}/review [put]
func (h *DocumentRequestHandler) ReviewRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.ReviewDocumentRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.requestService.ReviewRequest(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
