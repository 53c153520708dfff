package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/c4p-portal/pkg/queue"
)

// Task type names
const (
	TypeLegacySweep        = "media:legacy_sweep"
	TypeMigrateProfileCV   = "media:migrate_profile_cv"
	TypeMigrateProposalDoc = "media:migrate_proposal_doc"
	TypeClearLegacy        = "media:clear_legacy"
)

// LegacyPrefix marks URLs that still point at the old local uploads folder.
const LegacyPrefix = "/uploads/"

// MigrateProfileCVPayload identifies one profile whose CV is still local.
type MigrateProfileCVPayload struct {
	ProfileID uint `json:"profile_id"`
}

// MigrateProposalDocPayload identifies one placement whose document is
// still local.
type MigrateProposalDocPayload struct {
	ProposalID uint `json:"proposal_id"`
}

func NewLegacySweepTask() *asynq.Task {
	return asynq.NewTask(TypeLegacySweep, nil,
		asynq.Queue(queue.QueueMedia),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	)
}

func NewMigrateProfileCVTask(payload MigrateProfileCVPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMigrateProfileCV, data,
		asynq.Queue(queue.QueueMedia),
		asynq.TaskID(fmt.Sprintf("migrate-cv-%d", payload.ProfileID)),
		asynq.Timeout(2*time.Minute),
	), nil
}

func NewMigrateProposalDocTask(payload MigrateProposalDocPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMigrateProposalDoc, data,
		asynq.Queue(queue.QueueMedia),
		asynq.TaskID(fmt.Sprintf("migrate-doc-%d", payload.ProposalID)),
		asynq.Timeout(2*time.Minute),
	), nil
}

func NewClearLegacyTask() *asynq.Task {
	return asynq.NewTask(TypeClearLegacy, nil,
		asynq.Queue(queue.QueueMaintenance),
		asynq.MaxRetry(1),
	)
}
