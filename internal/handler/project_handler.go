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

type ProjectHandler struct {
	projectService service.ProjectService
	trancheService service.TrancheService
	authn          *middleware.Authenticator
}

func NewProjectHandler(projectService service.ProjectService, trancheService service.TrancheService, authn *middleware.Authenticator) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, trancheService: trancheService, authn: authn}
}

func (h *ProjectHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/projects")
	group.Use(h.authn.RequireRole())
	{
		group.POST("", h.authn.RequireRole(model.RoleNGO), h.CreateProject)
		group.GET("", h.ListProjects)
		group.GET("/:id", h.GetProject)
		group.POST("/:id/donations", h.authn.RequireRole(model.RoleCorporate), h.RecordDonation)
		group.GET("/:id/tranches", h.ListTranches)
	}
}

// CreateProject handles POST /api/projects
// @Summary      Create project
// @Description  Creates a project and splits its target into LOCKED milestone tranches. Percentages must total 100.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProjectRequest  true  "Project Payload"
// @Success      201      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, project))
}

// ListProjects handles GET /api/projects
// @Summary      List projects
// @Description  NGOs see their own projects, corporates and admins see all
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        sector  query     string  false  "Filter by sector"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=service.ProjectListResponse}
// @Router       /api/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	res, err := h.projectService.ListProjects(c.Request.Context(), a, service.ProjectFilter{
		Status: c.Query("status"),
		Sector: c.Query("sector"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// GetProject handles GET /api/projects/:id
// @Summary      Get project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=service.ProjectResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// RecordDonation handles POST /api/projects/:id/donations
// @Summary      Record donation
// @Description  The first donor becomes the project's funding corporate
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Project ID"
// @Param        payload  body      service.DonationRequest  true  "Donation"
// @Success      201      {object}  response.Response{data=service.DonationResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/projects/{id}/donations [post]
func (h *ProjectHandler) RecordDonation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.DonationRequest
	if !bindJSON(c, &req) {
		return
	}

	donation, err := h.projectService.RecordDonation(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, donation))
}

// ListTranches handles GET /api/projects/:id/tranches
// @Summary      List tranches
// @Tags         tranches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=[]service.TrancheResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/projects/{id}/tranches [get]
func (h *ProjectHandler) ListTranches(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	tranches, err := h.trancheService.ListTranches(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tranches))
}
