package controller

import (
	"errors"
	"log"

	"ctfhost/auth"
	"ctfhost/content"
	"ctfhost/repository"
	"ctfhost/service"

	"github.com/gin-contrib/cache/persistence"
	"github.com/gin-gonic/gin"
)

type RouteInfo struct {
	Method        string
	Path          string
	HandlerFunc   gin.HandlerFunc
	Authenticated bool
	AdminOnly     bool
}

func SetRoutes(r *gin.Engine, cacheStore persistence.CacheStore) {
	routes := make([]RouteInfo, 0)
	routes = append(routes, setupTaskController()...)
	routes = append(routes, setupGroupController()...)
	routes = append(routes, setupSubmissionController()...)
	routes = append(routes, setupScoreController(cacheStore)...)
	routes = append(routes, setupTeamController()...)
	routes = append(routes, setupCompetitionController()...)
	for _, route := range routes {
		handlerfuncs := make([]gin.HandlerFunc, 0)
		if route.Authenticated || route.AdminOnly {
			handlerfuncs = append(handlerfuncs, AuthMiddleware(route.AdminOnly))
		}
		handlerfuncs = append(handlerfuncs, route.HandlerFunc)
		r.Handle(route.Method, "/api/"+route.Path, handlerfuncs...)
	}
}

func AuthMiddleware(adminOnly bool) gin.HandlerFunc {
	teamService := service.NewTeamService()
	return func(c *gin.Context) {
		authCookie, err := c.Cookie("auth")
		if err != nil {
			c.JSON(401, gin.H{"success": false, "error": "unauthenticated"})
			c.Abort()
			return
		}
		token, err := auth.ParseToken(authCookie)
		if err != nil || !token.Valid {
			c.JSON(401, gin.H{"success": false, "error": "unauthenticated"})
			c.Abort()
			return
		}
		claims := &auth.Claims{}
		claims.FromJWTClaims(token.Claims)
		if err := claims.Valid(); err != nil {
			c.JSON(401, gin.H{"success": false, "error": "unauthenticated"})
			c.Abort()
			return
		}
		team, err := teamService.GetTeamById(claims.TeamId)
		if err != nil {
			c.JSON(401, gin.H{"success": false, "error": "unauthenticated"})
			c.Abort()
			return
		}
		if adminOnly && !team.IsAdmin {
			c.JSON(403, gin.H{"success": false, "error": "forbidden"})
			c.Abort()
			return
		}
		c.Set("team", team)
		c.Next()
	}
}

func getTeam(c *gin.Context) *repository.Team {
	value, exists := c.Get("team")
	if !exists {
		c.JSON(401, gin.H{"success": false, "error": "unauthenticated"})
		c.Abort()
		return nil
	}
	return value.(*repository.Team)
}

// abortWithError maps domain errors onto stable, translatable error keys.
// Business rule violations are expected and not logged as failures;
// anything unrecognized is logged in full and reported generically.
func abortWithError(c *gin.Context, err error) {
	var validationErr *content.ValidationError
	switch {
	case errors.Is(err, content.ErrTaskNotFound):
		c.JSON(404, gin.H{"success": false, "error": "task_not_found"})
	case errors.Is(err, content.ErrGroupNotFound):
		c.JSON(404, gin.H{"success": false, "error": "group_not_found"})
	case errors.Is(err, service.ErrHintNotFound):
		c.JSON(404, gin.H{"success": false, "error": "hint_not_found"})
	case errors.Is(err, content.ErrPresetNotFound):
		c.JSON(404, gin.H{"success": false, "error": "preset_not_found"})
	case errors.Is(err, service.ErrTooFrequentSubmissions):
		c.JSON(429, gin.H{"success": false, "error": "too_frequent"})
	case errors.Is(err, repository.ErrTaskAlreadySolved):
		c.JSON(409, gin.H{"success": false, "error": "already_solved"})
	case errors.Is(err, repository.ErrNotEnoughPoints):
		c.JSON(403, gin.H{"success": false, "error": "not_enough_points"})
	case errors.Is(err, content.ErrCycle):
		c.JSON(409, gin.H{"success": false, "error": "cycle_detected"})
	case errors.Is(err, content.ErrInvalidInherit):
		c.JSON(500, gin.H{"success": false, "error": "invalid_seed_inheritance"})
	case errors.Is(err, service.ErrCheckerNotImplemented):
		c.JSON(501, gin.H{"success": false, "error": "checker_not_implemented"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(401, gin.H{"success": false, "error": "invalid_credentials"})
	case errors.As(err, &validationErr):
		c.JSON(400, gin.H{"success": false, "error": "validation_error", "detail": validationErr.Error()})
	default:
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(500, gin.H{"success": false, "error": "internal_error"})
	}
}
