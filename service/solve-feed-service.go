package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"ctfhost/config"

	"github.com/segmentio/kafka-go"
)

// SolveEvent is one message on the solve feed, consumed by the scoreboard
// pushers and the Discord announcer.
type SolveEvent struct {
	Team       string    `json:"team"`
	TaskId     int       `json:"task_id"`
	TaskTitle  string    `json:"task_title"`
	Points     int       `json:"points"`
	FirstBlood bool      `json:"first_blood"`
	Time       time.Time `json:"time"`
}

type SolveFeedService struct {
	mu     sync.Mutex
	writer *kafka.Writer
	tried  bool
}

func NewSolveFeedService() *SolveFeedService {
	return &SolveFeedService{}
}

// Publish writes the event to the solve topic. Without a configured broker
// the feed is silently disabled; a solve must never fail because the feed
// is down.
func (e *SolveFeedService) Publish(ctx context.Context, event *SolveEvent) {
	writer := e.getWriter()
	if writer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to serialize solve event: %v", err)
		return
	}
	err = writer.WriteMessages(ctx, kafka.Message{Value: payload})
	if err != nil {
		log.Printf("Failed to publish solve event: %v", err)
	}
}

func (e *SolveFeedService) getWriter() *kafka.Writer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.writer != nil || e.tried {
		return e.writer
	}
	e.tried = true
	if config.Env().KafkaBroker == "" {
		return nil
	}
	writer, err := config.GetSolveWriter()
	if err != nil {
		log.Printf("Solve feed disabled: %v", err)
		return nil
	}
	e.writer = writer
	return e.writer
}
