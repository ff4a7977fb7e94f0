package handler

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"csrhub/internal/auth"
	"csrhub/internal/middleware"
	"csrhub/internal/upload"
	"csrhub/pkg/apperror"
	"csrhub/pkg/response"
)

// respondError writes the error response. The full error is attached to the
// context for middleware.RequestLogger.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := response.FromError(err)
	c.JSON(status, body)
}

// bindJSON decodes the body and writes a 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperror.Validation("invalid request payload: %v", err))
		return false
	}
	return true
}

// actor returns the authenticated caller or writes a 401
func actor(c *gin.Context) (auth.Actor, bool) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		respondError(c, apperror.Unauthorized("user not found in context"))
		return auth.Actor{}, false
	}
	return a, true
}

// formFile opens a multipart field as an upload. The caller closes the returned file.
func formFile(c *gin.Context, field string) (upload.File, multipart.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return upload.File{}, nil, apperror.Validation("%s is required", field)
	}
	src, err := fh.Open()
	if err != nil {
		return upload.File{}, nil, apperror.Validation("failed to open uploaded file")
	}
	return upload.File{
		Name:         fh.Filename,
		DeclaredType: fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		Content:      src,
	}, src, nil
}
