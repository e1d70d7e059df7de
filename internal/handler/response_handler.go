package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniportal/ecms-api/internal/service"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
	"github.com/uniportal/ecms-api/pkg/response"
)

// ResponseHandler wires HTTP endpoints to the response service.
type ResponseHandler struct {
	service *service.ResponseService
}

// NewResponseHandler creates a new handler.
func NewResponseHandler(svc *service.ResponseService) *ResponseHandler {
	return &ResponseHandler{service: svc}
}

// Create godoc
// @Summary Respond to a complaint
// @Tags Responses
// @Accept json
// @Produce json
// @Param id path string true "Complaint id"
// @Param payload body service.CreateResponseRequest true "Response payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/responses [post]
func (h *ResponseHandler) Create(c *gin.Context) {
	var req service.CreateResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid response payload"))
		return
	}

	claims := claimsFromContext(c)
	actorName := ""
	if claims != nil {
		actorName = claims.Name
	}

	created, err := h.service.Create(c.Request.Context(), actorFromContext(c), actorName, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List responses of a complaint
// @Tags Responses
// @Produce json
// @Param id path string true "Complaint id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/responses [get]
func (h *ResponseHandler) List(c *gin.Context) {
	responses, err := h.service.ListForComplaint(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, responses, nil)
}
