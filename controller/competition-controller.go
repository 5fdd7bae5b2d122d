package controller

import (
	"ctfhost/service"

	"github.com/gin-gonic/gin"
)

type CompetitionController struct {
	competitionService *service.CompetitionService
}

func NewCompetitionController() *CompetitionController {
	return &CompetitionController{
		competitionService: service.NewCompetitionService(),
	}
}

func setupCompetitionController() []RouteInfo {
	e := NewCompetitionController()
	routes := []RouteInfo{
		{Method: "GET", Path: "competition", HandlerFunc: e.getCompetitionHandler()},
		{Method: "POST", Path: "admin/competition", HandlerFunc: e.saveCompetitionHandler(), AdminOnly: true},
	}
	return routes
}

// @id GetCompetition
// @Description Returns the competition schedule and registration toggle
// @Tags competition
// @Produce json
// @Success 200 {object} service.Competition
// @Router /competition [get]
func (e *CompetitionController) getCompetitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		competition, err := e.competitionService.GetCompetition()
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, competition)
	}
}

// @id SaveCompetition
// @Description Updates the competition schedule and registration toggle
// @Tags competition
// @Accept json
// @Param body body service.Competition true "Competition configuration"
// @Success 200 {object} map[string]any
// @Router /admin/competition [post]
func (e *CompetitionController) saveCompetitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var competition service.Competition
		if err := c.BindJSON(&competition); err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_body"})
			return
		}
		if competition.EndTime < competition.StartTime {
			c.JSON(400, gin.H{"success": false, "error": "validation_error", "detail": "end_time before start_time"})
			return
		}
		if err := e.competitionService.SaveCompetition(&competition); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true})
	}
}
