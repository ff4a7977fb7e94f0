package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"csrhub/internal/middleware"
	"csrhub/internal/model"
	"csrhub/internal/service"
	"csrhub/pkg/response"
)

type NGOHandler struct {
	ngoService service.NGOService
	authn      *middleware.Authenticator
}

func NewNGOHandler(ngoService service.NGOService, authn *middleware.Authenticator) *NGOHandler {
	return &NGOHandler{ngoService: ngoService, authn: authn}
}

func (h *NGOHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/ngos")
	group.Use(h.authn.RequireRole())
	{
		group.GET("/:id", h.GetNGO)
		group.GET("/:id/freshness", h.GetFreshness)
		group.PUT("/:id/certificates", h.authn.RequireRole(model.RoleNGO, model.RoleAdmin), h.UpdateCertificates)
		group.POST("/:id/trust-score/refresh", h.authn.RequireRole(model.RoleNGO, model.RoleAdmin), h.RefreshTrustScore)
	}
}

// GetNGO handles GET /api/ngos/:id
// @Summary      Get NGO profile
// @Description  Includes certificate freshness and the current trust score
// @Tags         ngos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "NGO ID"
// @Success      200  {object}  response.Response{data=service.NGOResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/ngos/{id} [get]
func (h *NGOHandler) GetNGO(c *gin.Context) {
	ngo, err := h.ngoService.GetNGO(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ngo))
}

// GetFreshness handles GET /api/ngos/:id/freshness
// @Summary      Get certificate freshness
// @Tags         ngos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "NGO ID"
// @Success      200  {object}  response.Response{data=service.FreshnessResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/ngos/{id}/freshness [get]
func (h *NGOHandler) GetFreshness(c *gin.Context) {
	report, err := h.ngoService.GetFreshness(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// UpdateCertificates handles PUT /api/ngos/:id/certificates
// @Summary      Update certificate dates
// @Description  Dates are YYYY-MM-DD. An empty string clears a date, an omitted field is left unchanged.
// @Tags         ngos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                             true  "NGO ID"
// @Param        payload  body      service.UpdateCertificatesRequest  true  "Certificate dates"
// @Success      200      {object}  response.Response{data=service.NGOResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/ngos/{id}/certificates [put]
func (h *NGOHandler) UpdateCertificates(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.UpdateCertificatesRequest
	if !bindJSON(c, &req) {
		return
	}

	ngo, err := h.ngoService.UpdateCertificates(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ngo))
}

// RefreshTrustScore handles POST /api/ngos/:id/trust-score/refresh
// @Summary      Recompute trust score
// @Tags         ngos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "NGO ID"
// @Success      200  {object}  response.Response{data=service.TrustScoreResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/ngos/{id}/trust-score/refresh [post]
func (h *NGOHandler) RefreshTrustScore(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	score, err := h.ngoService.RefreshTrustScore(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, score))
}
