package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/service"
)

// ModelHandler serves the model catalog.
type ModelHandler struct {
	models *service.ModelService
}

func NewModelHandler(models *service.ModelService) *ModelHandler {
	return &ModelHandler{models: models}
}

// HandleList handles GET /api/models.
func (h *ModelHandler) HandleList(c *gin.Context) {
	c.JSON(http.StatusOK, h.models.GetModels())
}

// HandleGet handles GET /api/models/:id.
func (h *ModelHandler) HandleGet(c *gin.Context) {
	m := h.models.GetModel(c.Param("id"))
	if m == nil {
		respondError(c, models.ErrCodeModelNotFound, "Model not found")
		return
	}
	c.JSON(http.StatusOK, m)
}

// HandleDefaultSettings handles GET /api/models/:id/settings.
func (h *ModelHandler) HandleDefaultSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.models.DefaultSettings(c.Param("id")))
}
