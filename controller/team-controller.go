package controller

import (
	"ctfhost/auth"
	"ctfhost/service"

	"github.com/gin-gonic/gin"
)

type TeamController struct {
	teamService        *service.TeamService
	submissionService  *service.SubmissionService
	competitionService *service.CompetitionService
}

func NewTeamController() *TeamController {
	return &TeamController{
		teamService:        service.NewTeamService(),
		submissionService:  service.NewSubmissionService(),
		competitionService: service.NewCompetitionService(),
	}
}

func setupTeamController() []RouteInfo {
	e := NewTeamController()
	routes := []RouteInfo{
		{Method: "POST", Path: "teams", HandlerFunc: e.registerHandler()},
		{Method: "POST", Path: "login", HandlerFunc: e.loginHandler()},
		{Method: "POST", Path: "logout", HandlerFunc: e.logoutHandler()},
		{Method: "GET", Path: "teams/self", HandlerFunc: e.getSelfHandler(), Authenticated: true},
		{Method: "POST", Path: "admin/teams", HandlerFunc: e.adminRegisterHandler(), AdminOnly: true},
	}
	return routes
}

type TeamRegistration struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TeamLogin struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// @id RegisterTeam
// @Description Self-registers a team when the competition allows it
// @Tags teams
// @Accept json
// @Produce json
// @Param body body TeamRegistration true "Team registration"
// @Success 201 {object} map[string]any
// @Router /teams [post]
func (e *TeamController) registerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		competition, err := e.competitionService.GetCompetition()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !competition.AllowTeamSelfRegistration {
			c.JSON(403, gin.H{"success": false, "error": "registration_closed"})
			return
		}
		e.register(c)
	}
}

// @id AdminRegisterTeam
// @Description Registers a team regardless of the self-registration toggle
// @Tags teams
// @Accept json
// @Produce json
// @Param body body TeamRegistration true "Team registration"
// @Success 201 {object} map[string]any
// @Router /admin/teams [post]
func (e *TeamController) adminRegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		e.register(c)
	}
}

func (e *TeamController) register(c *gin.Context) {
	var registration TeamRegistration
	if err := c.BindJSON(&registration); err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid_body"})
		return
	}
	team, err := e.teamService.Register(registration.Name, registration.FullName, registration.Email, registration.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(201, gin.H{"success": true, "team_id": team.Id})
}

// @id Login
// @Description Authenticates a team and sets the auth cookie
// @Tags teams
// @Accept json
// @Produce json
// @Param body body TeamLogin true "Credentials"
// @Success 200 {object} map[string]any
// @Router /login [post]
func (e *TeamController) loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var login TeamLogin
		if err := c.BindJSON(&login); err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_body"})
			return
		}
		team, err := e.teamService.Login(login.Name, login.Password)
		if err != nil {
			abortWithError(c, err)
			return
		}
		token, err := auth.CreateToken(team)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.SetCookie("auth", token, 86400, "/", "", false, true)
		c.JSON(200, gin.H{"success": true})
	}
}

// @id Logout
// @Description Clears the auth cookie
// @Tags teams
// @Success 200 {object} map[string]any
// @Router /logout [post]
func (e *TeamController) logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie("auth", "", -1, "/", "", false, true)
		c.JSON(200, gin.H{"success": true})
	}
}

type TeamSelfView struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Points   int    `json:"points"`
	Solves   []int  `json:"solves"`
}

// @id GetSelf
// @Description Returns the requesting team's profile, balance and solves
// @Tags teams
// @Produce json
// @Success 200 {object} TeamSelfView
// @Router /teams/self [get]
func (e *TeamController) getSelfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		team := getTeam(c)
		if team == nil {
			return
		}
		points, err := e.teamService.Points(team.Id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		solves, err := e.submissionService.GetSolvesForTeam(team.Id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		solvedIds := make([]int, 0, len(solves))
		for _, solve := range solves {
			solvedIds = append(solvedIds, solve.TaskId)
		}
		c.JSON(200, TeamSelfView{
			Name:     team.Name,
			FullName: team.FullName,
			Email:    team.Email,
			Points:   points,
			Solves:   solvedIds,
		})
	}
}
