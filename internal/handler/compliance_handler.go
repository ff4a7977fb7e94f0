package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"csrhub/internal/middleware"
	"csrhub/internal/model"
	"csrhub/internal/service"
	"csrhub/pkg/response"
)

type ComplianceHandler struct {
	complianceService service.ComplianceService
	authn             *middleware.Authenticator
}

func NewComplianceHandler(complianceService service.ComplianceService, authn *middleware.Authenticator) *ComplianceHandler {
	return &ComplianceHandler{complianceService: complianceService, authn: authn}
}

func (h *ComplianceHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/api/projects/:id/compliance")
	projects.Use(h.authn.RequireRole())
	{
		projects.GET("", h.GetChecklist)
		projects.GET("/export", h.ExportChecklist)
		projects.POST("/upload", h.authn.RequireRole(model.RoleNGO), h.UploadDocument)
	}

	docs := router.Group("/api/compliance")
	docs.Use(h.authn.RequireRole())
	{
		docs.GET("/:id/uploads", h.ListUploads)
		docs.PUT("/:id/verify", h.authn.RequireRole(model.RoleCorporate, model.RoleAdmin), h.VerifyDocument)
	}
}

// GetChecklist handles GET /api/projects/:id/compliance
// @Summary      Get compliance checklist
// @Description  Returns every document slot of categories A to G with its status and the completeness percentage
// @Tags         compliance
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=service.ChecklistResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/projects/{id}/compliance [get]
func (h *ComplianceHandler) GetChecklist(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	checklist, err := h.complianceService.GetChecklist(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, checklist))
}

// UploadDocument handles POST /api/projects/:id/compliance/upload
// @Summary      Upload compliance document
// @Tags         compliance
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true  "Project ID"
// @Param        file      formData  file    true  "Document (PDF, JPEG, PNG, max 2 MB)"
// @Param        category  formData  string  true  "Category code A-G"
// @Param        doc_name  formData  string  true  "Document name"
// @Success      201  {object}  response.Response{data=service.ComplianceDocResponse}
// @Failure      400  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/projects/{id}/compliance/upload [post]
func (h *ComplianceHandler) UploadDocument(c *gin.Context) {
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

	doc, err := h.complianceService.UploadDocument(c.Request.Context(), a, c.Param("id"), c.PostForm("category"), c.PostForm("doc_name"), file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, doc))
}

// VerifyDocument handles PUT /api/compliance/:id/verify
// @Summary      Verify, approve or reject a compliance document
// @Tags         compliance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Document ID"
// @Param        payload  body      service.VerifyDocumentRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=service.ComplianceDocResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/compliance/{id}/verify [put]
func (h *ComplianceHandler) VerifyDocument(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.VerifyDocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := h.complianceService.VerifyDocument(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
}

// ListUploads handles GET /api/compliance/:id/uploads
// @Summary      List uploads of a compliance document
// @Tags         compliance
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response{data=[]service.UploadResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/compliance/{id}/uploads [get]
func (h *ComplianceHandler) ListUploads(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	uploads, err := h.complianceService.ListUploads(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, uploads))
}

// ExportChecklist handles GET /api/projects/:id/compliance/export
// @Summary      Export compliance checklist
// @Tags         compliance
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        id   path  string  true  "Project ID"
// @Success      200  {file}  file
// @Failure      403  {object}  response.Response
// @Router       /api/projects/{id}/compliance/export [get]
func (h *ComplianceHandler) ExportChecklist(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	file, err := h.complianceService.ExportChecklist(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
