package service

import (
	"context"
	"errors"
	"time"

	"ctfhost/config"
	"ctfhost/content"
	"ctfhost/generation"
	"ctfhost/metrics"
	"ctfhost/repository"
	"ctfhost/utils"
)

var ErrHintNotFound = errors.New("hint not found")

type TaskService struct {
	store                  *content.Store
	engine                 *generation.Engine
	submissionRepository   *repository.SubmissionRepository
	hintPurchaseRepository *repository.HintPurchaseRepository
}

func NewTaskService() *TaskService {
	cfg := config.Env()
	store := content.NewStore(cfg.ContentRoot, cfg.GenPresetsPath)
	return &TaskService{
		store:                  store,
		engine:                 generation.NewEngine(store, time.Duration(cfg.GeneratorTimeout)*time.Second),
		submissionRepository:   repository.NewSubmissionRepository(),
		hintPurchaseRepository: repository.NewHintPurchaseRepository(),
	}
}

func (e *TaskService) Store() *content.Store {
	return e.store
}

func (e *TaskService) Engine() *generation.Engine {
	return e.engine
}

func (e *TaskService) GetTaskList() ([]*content.Task, error) {
	return e.store.ListTasks()
}

func (e *TaskService) GetTask(taskId int) (*content.Task, error) {
	return e.store.ReadTask(taskId)
}

// InstanceToken derives the team's generation token for a task, resolving
// the task seed through the group hierarchy.
func (e *TaskService) InstanceToken(team *repository.Team, task *content.Task) (string, error) {
	taskSeed, err := e.store.ResolveTaskSeed(task)
	if err != nil {
		return "", err
	}
	globalSeed, err := e.store.GlobalSeed()
	if err != nil {
		return "", err
	}
	return generation.DeriveToken(team.TokenSeed, taskSeed, globalSeed), nil
}

// GetTaskForTeam returns the team-specific variant of a task, generating
// it if the cache is absent or stale.
func (e *TaskService) GetTaskForTeam(ctx context.Context, team *repository.Team, taskId int) (*content.Task, error) {
	task, err := e.store.ReadTask(taskId)
	if err != nil {
		return nil, err
	}
	token, err := e.InstanceToken(team, task)
	if err != nil {
		return nil, err
	}
	return e.engine.GetGeneratedTask(ctx, task, token, team.Name)
}

// SaveTask creates or fully replaces a task record. A zero id allocates
// the next one; a missing seed gets a fresh literal.
func (e *TaskService) SaveTask(task *content.Task) (*content.Task, error) {
	if task.Id == 0 {
		id, err := e.store.AllocateTaskId()
		if err != nil {
			return nil, err
		}
		task.Id = id
	}
	if task.Seed == "" {
		task.Seed = utils.RandomHex(8)
	}
	if task.Labels == nil {
		task.Labels = []string{}
	}
	if err := e.store.WriteTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes the task and cascades its submission history and hint
// purchases.
func (e *TaskService) DeleteTask(taskId int) error {
	if err := e.store.DeleteTask(taskId); err != nil {
		return err
	}
	if err := e.submissionRepository.DeleteForTask(taskId); err != nil {
		return err
	}
	return e.hintPurchaseRepository.DeleteForTask(taskId)
}

// WriteGenConfigFromPreset copies a named preset into the task's
// generation config, which also marks every cached instance stale.
func (e *TaskService) WriteGenConfigFromPreset(taskId int, presetName string) error {
	preset, err := e.store.ReadPreset(presetName)
	if err != nil {
		return err
	}
	return e.store.WriteGenConfig(taskId, preset)
}

// AccessHint returns the hint text, purchasing the hint first if the team
// does not have it yet. Repeat access never charges twice.
func (e *TaskService) AccessHint(team *repository.Team, taskId int, hintId string) (string, error) {
	task, err := e.store.ReadTask(taskId)
	if err != nil {
		return "", err
	}
	hint := task.Hint(hintId)
	if hint == nil {
		return "", ErrHintNotFound
	}
	purchased, err := e.hintPurchaseRepository.HasPurchase(team.Id, taskId, hintId)
	if err != nil {
		return "", err
	}
	if purchased {
		return hint.Text, nil
	}
	if err := e.hintPurchaseRepository.Purchase(team.Id, taskId, hintId, hint.Cost); err != nil {
		return "", err
	}
	metrics.HintPurchaseCounter.Inc()
	return hint.Text, nil
}
