package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TypeAudioReap  = "audio:reap"
	TypeAudioSweep = "audio:sweep"
)

// QueueMaintenance carries cleanup work so it never competes with anything
// latency sensitive sharing the same Redis.
const QueueMaintenance = "maintenance"

// AudioReapPayload names one audio handle the API failed to delete.
type AudioReapPayload struct {
	Path string `json:"path"`
}

// AudioSweepPayload is empty; the worker's own config decides what is stale.
type AudioSweepPayload struct{}

func NewAudioReapTask(path string) (*asynq.Task, error) {
	if path == "" {
		return nil, fmt.Errorf("reap task: empty path")
	}
	data, err := json.Marshal(AudioReapPayload{Path: path})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeAudioReap, data), nil
}

func NewAudioSweepTask() *asynq.Task {
	data, _ := json.Marshal(AudioSweepPayload{})
	return asynq.NewTask(TypeAudioSweep, data)
}
