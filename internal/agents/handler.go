package agents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"callinsights-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/agents/statistics", h.statistics)
}

func (h *Handler) statistics(c *gin.Context) {
	start, end, err := ParseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		issue := "invalid"
		if errors.Is(err, ErrPartialRange) {
			issue = "both_or_neither"
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
			{"field": "start,end", "issue": issue},
		})
		return
	}
	ids, err := ParseAgentIDs(c.QueryArray("agentId"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
			{"field": "agentId", "issue": "invalid"},
		})
		return
	}

	rows := h.Svc.Statistics(c.Request.Context(), Query{Start: start, End: end, AgentIDs: ids})
	response := gin.H{"items": rows}
	if start != nil {
		// bounds echo back in the form the statistics service received them
		response["start"], _ = FormatForAPI(c.Query("start"))
		response["end"], _ = FormatForAPI(c.Query("end"))
	}
	respond.OK(c, response)
}
