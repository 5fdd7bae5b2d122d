package cron

import (
	"context"
	"log"
	"time"

	"ctfhost/generation"
	"ctfhost/service"
)

// PregenerationService keeps task instances warm by regenerating every
// team x task pair in the background, so teams rarely hit the generator
// on the request path.
type PregenerationService struct {
	taskService *service.TaskService
	teamService *service.TeamService
	interval    time.Duration
}

func NewPregenerationService(taskService *service.TaskService, interval time.Duration) *PregenerationService {
	return &PregenerationService{
		taskService: taskService,
		teamService: service.NewTeamService(),
		interval:    interval,
	}
}

func (s *PregenerationService) Start(ctx context.Context) {
	go func() {
		for {
			s.runOnce(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.interval):
			}
		}
	}()
}

func (s *PregenerationService) runOnce(ctx context.Context) {
	tasks, err := s.taskService.GetTaskList()
	if err != nil {
		log.Printf("Pregeneration: failed to list tasks: %v", err)
		return
	}
	teams, err := s.teamService.GetAllTeams()
	if err != nil {
		log.Printf("Pregeneration: failed to list teams: %v", err)
		return
	}

	engine := s.taskService.Engine()
	generated := 0
	for _, task := range tasks {
		for _, team := range teams {
			if ctx.Err() != nil {
				return
			}
			token, err := s.taskService.InstanceToken(team, task)
			if err != nil {
				log.Printf("Pregeneration: task %d: %v", task.Id, err)
				break
			}
			state, _, err := engine.InstanceState(task.Id, token)
			if err == nil && state == generation.Fresh {
				continue
			}
			if _, err := engine.GetGeneratedTask(ctx, task, token, team.Name); err != nil {
				log.Printf("Pregeneration: task %d, team %s: %v", task.Id, team.Name, err)
				continue
			}
			generated++
		}
	}
	if generated > 0 {
		log.Printf("Pregeneration: generated %d instances", generated)
	}
}
