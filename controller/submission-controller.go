package controller

import (
	"time"

	"ctfhost/service"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	submissionService  *service.SubmissionService
	competitionService *service.CompetitionService
}

func NewSubmissionController() *SubmissionController {
	return &SubmissionController{
		submissionService:  service.NewSubmissionService(),
		competitionService: service.NewCompetitionService(),
	}
}

func setupSubmissionController() []RouteInfo {
	e := NewSubmissionController()
	routes := []RouteInfo{
		{Method: "POST", Path: "submit-flag", HandlerFunc: e.submitFlagHandler(), Authenticated: true},
		{Method: "GET", Path: "submissions", HandlerFunc: e.getOwnSubmissionsHandler(), Authenticated: true},
	}
	return routes
}

type FlagSubmission struct {
	TaskId int    `json:"task_id"`
	Flag   string `json:"flag"`
}

// @id SubmitFlag
// @Description Submits a flag for a task. Rate limited per team across all tasks.
// @Tags submissions
// @Accept json
// @Produce json
// @Param body body FlagSubmission true "Flag submission"
// @Success 200 {object} map[string]any
// @Router /submit-flag [post]
func (e *SubmissionController) submitFlagHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		team := getTeam(c)
		if team == nil {
			return
		}
		var submission FlagSubmission
		if err := c.BindJSON(&submission); err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_body"})
			return
		}
		competition, err := e.competitionService.GetCompetition()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !competition.IsRunning(time.Now()) && !team.IsAdmin {
			c.JSON(403, gin.H{"success": false, "error": "competition_not_running"})
			return
		}
		correct, err := e.submissionService.SubmitFlag(c.Request.Context(), team, submission.TaskId, submission.Flag)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true, "correct": correct})
	}
}

// @id GetOwnSubmissions
// @Description Lists the requesting team's submissions
// @Tags submissions
// @Produce json
// @Success 200 {array} repository.Submission
// @Router /submissions [get]
func (e *SubmissionController) getOwnSubmissionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		team := getTeam(c)
		if team == nil {
			return
		}
		submissions, err := e.submissionService.GetSubmissionsForTeam(team.Id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, submissions)
	}
}
