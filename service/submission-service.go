package service

import (
	"context"
	"errors"
	"time"

	"ctfhost/config"
	"ctfhost/metrics"
	"ctfhost/repository"
)

// ErrTooFrequentSubmissions rejects a flag before it is even evaluated:
// the cooldown is global per team, across all tasks.
var ErrTooFrequentSubmissions = errors.New("submitting flags too frequently")

type SubmissionService struct {
	taskService          *TaskService
	submissionRepository *repository.SubmissionRepository
	throttleRepository   *repository.ThrottleRepository
	solveFeed            *SolveFeedService
}

func NewSubmissionService() *SubmissionService {
	return &SubmissionService{
		taskService:          NewTaskService(),
		submissionRepository: repository.NewSubmissionRepository(),
		throttleRepository:   repository.NewThrottleRepository(),
		solveFeed:            NewSolveFeedService(),
	}
}

// SubmitFlag runs the whole submission pipeline: cooldown, instance
// resolution, checker evaluation, ledger append, solve feed. The cooldown
// is consumed before the flag is looked at, so wrong and erroring
// submissions cost the team their interval too.
func (e *SubmissionService) SubmitFlag(ctx context.Context, team *repository.Team, taskId int, flagText string) (bool, error) {
	interval := time.Duration(config.Env().MinSubmissionInterval) * time.Second
	acquired, err := e.throttleRepository.TryAcquire(team.Id, interval)
	if err != nil {
		return false, err
	}
	if !acquired {
		metrics.SubmissionCounter.WithLabelValues("throttled").Inc()
		return false, ErrTooFrequentSubmissions
	}

	task, err := e.taskService.GetTaskForTeam(ctx, team, taskId)
	if err != nil {
		return false, err
	}

	correct, err := CheckFlag(task, flagText)
	if err != nil {
		return false, err
	}

	points := 0
	if correct {
		points = task.Value
	}

	var solvesBefore int64
	if correct {
		solvesBefore, err = e.submissionRepository.CountSolves(taskId)
		if err != nil {
			return false, err
		}
	}

	err = e.submissionRepository.AddSubmission(&repository.Submission{
		TeamId:    team.Id,
		TaskId:    taskId,
		Flag:      flagText,
		Correct:   correct,
		Points:    points,
		Timestamp: time.Now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrTaskAlreadySolved) {
			metrics.SubmissionCounter.WithLabelValues("already_solved").Inc()
		}
		return false, err
	}

	if correct {
		metrics.SubmissionCounter.WithLabelValues("correct").Inc()
		e.solveFeed.Publish(ctx, &SolveEvent{
			Team:       team.Name,
			TaskId:     taskId,
			TaskTitle:  task.Title,
			Points:     points,
			FirstBlood: solvesBefore == 0,
			Time:       time.Now(),
		})
	} else {
		metrics.SubmissionCounter.WithLabelValues("wrong").Inc()
	}
	return correct, nil
}

func (e *SubmissionService) GetSubmissionsForTeam(teamId int) ([]*repository.Submission, error) {
	return e.submissionRepository.GetSubmissionsForTeam(teamId)
}

func (e *SubmissionService) GetSolvesForTeam(teamId int) ([]*repository.Submission, error) {
	return e.submissionRepository.GetSolvesForTeam(teamId)
}
