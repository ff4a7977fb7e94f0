package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"csrhub/internal/middleware"
	"csrhub/internal/model"
	"csrhub/internal/service"
	"csrhub/pkg/response"
)

type TrancheHandler struct {
	trancheService service.TrancheService
	authn          *middleware.Authenticator
}

func NewTrancheHandler(trancheService service.TrancheService, authn *middleware.Authenticator) *TrancheHandler {
	return &TrancheHandler{trancheService: trancheService, authn: authn}
}

func (h *TrancheHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/tranches")
	group.Use(h.authn.RequireRole())
	{
		group.GET("/:id", h.GetTranche)
		group.POST("/:id/evidence", h.authn.RequireRole(model.RoleNGO), h.UploadEvidence)
		group.POST("/:id/request-release", h.authn.RequireRole(model.RoleNGO), h.RequestRelease)
		group.POST("/:id/review", h.authn.RequireRole(model.RoleCorporate, model.RoleAdmin), h.Review)
		group.POST("/:id/disburse", h.authn.RequireRole(model.RoleCorporate, model.RoleAdmin), h.MarkDisbursed)
	}
}

// GetTranche handles GET /api/tranches/:id
// @Summary      Get tranche
// @Tags         tranches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tranche ID"
// @Success      200  {object}  response.Response{data=service.TrancheResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/tranches/{id} [get]
func (h *TrancheHandler) GetTranche(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	tranche, err := h.trancheService.GetTranche(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tranche))
}

// UploadEvidence handles POST /api/tranches/:id/evidence
// @Summary      Attach release evidence
// @Description  Uploads a utilization certificate and/or a geo-tag. A BLOCKED tranche returns to LOCKED.
// @Tags         tranches
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id                       path      string  true   "Tranche ID"
// @Param        utilization_certificate  formData  file    false  "Utilization certificate"
// @Param        geo_tag                  formData  string  false  "GeoJSON Point or lat,lng"
// @Success      200  {object}  response.Response{data=service.TrancheResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/tranches/{id}/evidence [post]
func (h *TrancheHandler) UploadEvidence(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	in := service.EvidenceInput{GeoTag: c.PostForm("geo_tag")}
	if _, err := c.FormFile("utilization_certificate"); err == nil {
		file, src, err := formFile(c, "utilization_certificate")
		if err != nil {
			respondError(c, err)
			return
		}
		defer src.Close()
		in.UtilizationCertificate = &file
	}

	tranche, err := h.trancheService.UploadEvidence(c.Request.Context(), a, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tranche))
}

// RequestRelease handles POST /api/tranches/:id/request-release
// @Summary      Request tranche release
// @Description  Moves a LOCKED tranche with complete evidence to PENDING_APPROVAL
// @Tags         tranches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tranche ID"
// @Success      200  {object}  response.Response{data=service.TrancheResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/tranches/{id}/request-release [post]
func (h *TrancheHandler) RequestRelease(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	tranche, err := h.trancheService.RequestRelease(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tranche))
}

// Review handles POST /api/tranches/:id/review
// @Summary      Approve or reject a release request
// @Description  APPROVE releases the tranche. REJECT blocks it and requires remarks.
// @Tags         tranches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Tranche ID"
// @Param        payload  body      service.ReviewTrancheRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=service.TrancheResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tranches/{id}/review [post]
func (h *TrancheHandler) Review(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.ReviewTrancheRequest
	if !bindJSON(c, &req) {
		return
	}

	tranche, err := h.trancheService.Review(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tranche))
}

// MarkDisbursed handles POST /api/tranches/:id/disburse
// @Summary      Mark tranche disbursed
// @Tags         tranches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tranche ID"
// @Success      200  {object}  response.Response{data=service.TrancheResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/tranches/{id}/disburse [post]
func (h *TrancheHandler) MarkDisbursed(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	tranche, err := h.trancheService.MarkDisbursed(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tranche))
}
