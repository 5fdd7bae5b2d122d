package controller

import (
	"strconv"

	"ctfhost/content"
	"ctfhost/service"

	"github.com/gin-gonic/gin"
)

type GroupController struct {
	groupService *service.GroupService
}

func NewGroupController() *GroupController {
	return &GroupController{
		groupService: service.NewGroupService(),
	}
}

func setupGroupController() []RouteInfo {
	e := NewGroupController()
	routes := []RouteInfo{
		{Method: "GET", Path: "admin/groups", HandlerFunc: e.getGroupsHandler(), AdminOnly: true},
		{Method: "POST", Path: "admin/groups", HandlerFunc: e.saveGroupHandler(), AdminOnly: true},
		{Method: "DELETE", Path: "admin/groups/:group_id", HandlerFunc: e.deleteGroupHandler(), AdminOnly: true},
		{Method: "POST", Path: "admin/groups/:group_id/reparent", HandlerFunc: e.reparentGroupHandler(), AdminOnly: true},
		{Method: "GET", Path: "admin/groups/:group_id/path", HandlerFunc: e.groupPathHandler(), AdminOnly: true},
	}
	return routes
}

type GroupView struct {
	Id     int      `json:"id"`
	Name   string   `json:"name"`
	Parent int      `json:"parent"`
	Path   []string `json:"path"`
}

// @id GetGroups
// @Description Lists all groups with their root-to-node paths
// @Tags groups
// @Produce json
// @Success 200 {array} GroupView
// @Router /admin/groups [get]
func (e *GroupController) getGroupsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := e.groupService.GetGroups()
		if err != nil {
			abortWithError(c, err)
			return
		}
		paths, err := e.groupService.GroupPaths()
		if err != nil {
			abortWithError(c, err)
			return
		}
		views := make([]*GroupView, 0, len(groups))
		for id, group := range groups {
			views = append(views, &GroupView{
				Id:     id,
				Name:   group.Name,
				Parent: group.Parent,
				Path:   paths[id],
			})
		}
		c.JSON(200, views)
	}
}

// @id SaveGroup
// @Description Creates a group or fully replaces an existing record
// @Tags groups
// @Accept json
// @Produce json
// @Param body body content.Group true "Group record"
// @Success 201 {object} map[string]any
// @Router /admin/groups [post]
func (e *GroupController) saveGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var group content.Group
		if err := c.BindJSON(&group); err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_body"})
			return
		}
		saved, err := e.groupService.SaveGroup(&group)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(201, gin.H{"success": true, "group_id": saved.Id})
	}
}

// @id DeleteGroup
// @Description Deletes a group record. Children are not reparented.
// @Tags groups
// @Param group_id path int true "Group Id"
// @Success 200 {object} map[string]any
// @Router /admin/groups/{group_id} [delete]
func (e *GroupController) deleteGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		groupId, err := strconv.Atoi(c.Param("group_id"))
		if err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_group_id"})
			return
		}
		if err := e.groupService.DeleteGroup(groupId); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true})
	}
}

type ReparentRequest struct {
	NewParent int `json:"new_parent"`
}

// @id ReparentGroup
// @Description Moves a group under a new parent after checking for cycles
// @Tags groups
// @Accept json
// @Param group_id path int true "Group Id"
// @Param body body ReparentRequest true "New parent id, 0 for root"
// @Success 200 {object} map[string]any
// @Router /admin/groups/{group_id}/reparent [post]
func (e *GroupController) reparentGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		groupId, err := strconv.Atoi(c.Param("group_id"))
		if err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_group_id"})
			return
		}
		var request ReparentRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_body"})
			return
		}
		if err := e.groupService.Reparent(groupId, request.NewParent); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true})
	}
}

// @id GroupPath
// @Description Returns group names from the root to the given group
// @Tags groups
// @Produce json
// @Param group_id path int true "Group Id"
// @Success 200 {object} map[string]any
// @Router /admin/groups/{group_id}/path [get]
func (e *GroupController) groupPathHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		groupId, err := strconv.Atoi(c.Param("group_id"))
		if err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_group_id"})
			return
		}
		path, err := e.groupService.GroupPath(groupId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true, "path": path})
	}
}
