package controller

import (
	"strconv"

	"ctfhost/content"
	"ctfhost/repository"
	"ctfhost/service"
	"ctfhost/utils"

	"github.com/gin-gonic/gin"
)

type TaskController struct {
	taskService       *service.TaskService
	submissionService *service.SubmissionService
	teamService       *service.TeamService
}

func NewTaskController() *TaskController {
	return &TaskController{
		taskService:       service.NewTaskService(),
		submissionService: service.NewSubmissionService(),
		teamService:       service.NewTeamService(),
	}
}

func setupTaskController() []RouteInfo {
	e := NewTaskController()
	routes := []RouteInfo{
		{Method: "GET", Path: "tasks", HandlerFunc: e.getTaskListHandler(), Authenticated: true},
		{Method: "GET", Path: "tasks/:task_id", HandlerFunc: e.getTaskHandler(), Authenticated: true},
		{Method: "POST", Path: "tasks/:task_id/hints/:hint_id", HandlerFunc: e.accessHintHandler(), Authenticated: true},
		{Method: "POST", Path: "admin/tasks", HandlerFunc: e.saveTaskHandler(), AdminOnly: true},
		{Method: "DELETE", Path: "admin/tasks/:task_id", HandlerFunc: e.deleteTaskHandler(), AdminOnly: true},
		{Method: "POST", Path: "admin/tasks/:task_id/gen-config", HandlerFunc: e.setGenConfigHandler(), AdminOnly: true},
	}
	return routes
}

// HintView hides the text of hints the team has not purchased.
type HintView struct {
	HexId     string `json:"hexid"`
	Cost      int    `json:"cost"`
	Purchased bool   `json:"purchased"`
	Text      string `json:"text,omitempty"`
}

// TaskView is the public shape of a task: checkers and their data are
// never exposed.
type TaskView struct {
	Id     int        `json:"id"`
	Title  string     `json:"title"`
	Text   string     `json:"text"`
	Value  int        `json:"value"`
	Labels []string   `json:"labels"`
	Group  int        `json:"group"`
	Order  int        `json:"order"`
	Hints  []HintView `json:"hints"`
	Solved bool       `json:"solved"`
}

func toTaskView(task *content.Task, solved bool, purchased map[string]bool) *TaskView {
	return &TaskView{
		Id:     task.Id,
		Title:  task.Title,
		Text:   task.Text,
		Value:  task.Value,
		Labels: task.Labels,
		Group:  task.Group,
		Order:  task.Order,
		Solved: solved,
		Hints: utils.Map(task.Hints, func(hint content.Hint) HintView {
			view := HintView{HexId: hint.HexId, Cost: hint.Cost, Purchased: purchased[hint.HexId]}
			if view.Purchased {
				view.Text = hint.Text
			}
			return view
		}),
	}
}

// @id GetTasks
// @Description Lists all tasks with solved markers for the requesting team
// @Tags tasks
// @Produce json
// @Success 200 {array} TaskView
// @Router /tasks [get]
func (e *TaskController) getTaskListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		team := getTeam(c)
		if team == nil {
			return
		}
		tasks, err := e.taskService.GetTaskList()
		if err != nil {
			abortWithError(c, err)
			return
		}
		solves, err := e.submissionService.GetSolvesForTeam(team.Id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		solved := make(map[int]bool)
		for _, solve := range solves {
			solved[solve.TaskId] = true
		}
		purchases, err := e.teamService.GetPurchasedHints(team.Id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		purchased := make(map[int]map[string]bool)
		for _, purchase := range purchases {
			if purchased[purchase.TaskId] == nil {
				purchased[purchase.TaskId] = make(map[string]bool)
			}
			purchased[purchase.TaskId][purchase.HintId] = true
		}
		c.JSON(200, utils.Map(tasks, func(task *content.Task) *TaskView {
			return toTaskView(task, solved[task.Id], purchased[task.Id])
		}))
	}
}

// @id GetTask
// @Description Fetches the team-specific variant of a task, generating it if needed
// @Tags tasks
// @Produce json
// @Param task_id path int true "Task Id"
// @Success 200 {object} TaskView
// @Router /tasks/{task_id} [get]
func (e *TaskController) getTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		team := getTeam(c)
		if team == nil {
			return
		}
		taskId, err := strconv.Atoi(c.Param("task_id"))
		if err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_task_id"})
			return
		}
		task, err := e.taskService.GetTaskForTeam(c.Request.Context(), team, taskId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		solved, err := e.hasSolved(team, taskId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		purchased, err := e.purchasedHints(team, taskId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, toTaskView(task, solved, purchased))
	}
}

// @id AccessHint
// @Description Returns the hint text, purchasing it against the team balance on first access
// @Tags tasks
// @Produce json
// @Param task_id path int true "Task Id"
// @Param hint_id path string true "Hint hexid"
// @Success 200 {object} map[string]any
// @Router /tasks/{task_id}/hints/{hint_id} [post]
func (e *TaskController) accessHintHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		team := getTeam(c)
		if team == nil {
			return
		}
		taskId, err := strconv.Atoi(c.Param("task_id"))
		if err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_task_id"})
			return
		}
		text, err := e.taskService.AccessHint(team, taskId, c.Param("hint_id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true, "text": text})
	}
}

// @id SaveTask
// @Description Creates a task or fully replaces an existing record
// @Tags tasks
// @Accept json
// @Produce json
// @Param body body content.Task true "Task record"
// @Success 201 {object} map[string]any
// @Router /admin/tasks [post]
func (e *TaskController) saveTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var task content.Task
		if err := c.BindJSON(&task); err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_body"})
			return
		}
		saved, err := e.taskService.SaveTask(&task)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(201, gin.H{"success": true, "task_id": saved.Id})
	}
}

// @id DeleteTask
// @Description Deletes a task, its generated instances and its submission history
// @Tags tasks
// @Param task_id path int true "Task Id"
// @Success 200 {object} map[string]any
// @Router /admin/tasks/{task_id} [delete]
func (e *TaskController) deleteTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskId, err := strconv.Atoi(c.Param("task_id"))
		if err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_task_id"})
			return
		}
		if err := e.taskService.DeleteTask(taskId); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true})
	}
}

type GenConfigUpdate struct {
	Preset string `json:"preset"`
}

// @id SetGenConfig
// @Description Writes the task's generation config from a named preset
// @Tags tasks
// @Accept json
// @Param task_id path int true "Task Id"
// @Param body body GenConfigUpdate true "Preset name"
// @Success 200 {object} map[string]any
// @Router /admin/tasks/{task_id}/gen-config [post]
func (e *TaskController) setGenConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskId, err := strconv.Atoi(c.Param("task_id"))
		if err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_task_id"})
			return
		}
		var update GenConfigUpdate
		if err := c.BindJSON(&update); err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid_body"})
			return
		}
		if err := e.taskService.WriteGenConfigFromPreset(taskId, update.Preset); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true})
	}
}

func (e *TaskController) hasSolved(team *repository.Team, taskId int) (bool, error) {
	solves, err := e.submissionService.GetSolvesForTeam(team.Id)
	if err != nil {
		return false, err
	}
	for _, solve := range solves {
		if solve.TaskId == taskId {
			return true, nil
		}
	}
	return false, nil
}

func (e *TaskController) purchasedHints(team *repository.Team, taskId int) (map[string]bool, error) {
	purchases, err := e.teamService.GetPurchasedHints(team.Id)
	if err != nil {
		return nil, err
	}
	purchased := make(map[string]bool)
	for _, purchase := range purchases {
		if purchase.TaskId == taskId {
			purchased[purchase.HintId] = true
		}
	}
	return purchased, nil
}
