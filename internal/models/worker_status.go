package models

import (
	"time"

	"gorm.io/datatypes"
)

// WorkerState is WorkerStatus.State (spec.md §3, §4.2).
type WorkerState string

const (
	WorkerStateIdle       WorkerState = "idle"
	WorkerStateProcessing WorkerState = "processing"
	WorkerStatePaused     WorkerState = "paused"
	WorkerStateOffline    WorkerState = "offline"
)

// WorkerCommand is the pending out-of-band instruction an operator (or this
// same process, for OS signals) can post to a worker row.
type WorkerCommand string

const (
	CommandNone          WorkerCommand = "none"
	CommandPause         WorkerCommand = "pause"
	CommandResume        WorkerCommand = "resume"
	CommandShutdown      WorkerCommand = "shutdown"
	CommandForensicDump  WorkerCommand = "forensic_dump"
)

// WorkerStatus is the observational-only heartbeat row for one worker
// process. Lease expiry — not this row — is the source of truth for "is
// this work abandoned" (spec.md §4.1 "Heartbeat").
type WorkerStatus struct {
	WorkerID        string        `gorm:"column:worker_id;primaryKey" json:"worker_id"`
	Hostname        string        `gorm:"column:hostname;not null" json:"hostname"`
	LastHeartbeatAt time.Time     `gorm:"column:last_heartbeat_at;not null;index" json:"last_heartbeat_at"`
	State           WorkerState   `gorm:"column:state;not null" json:"state"`
	PendingCommand  WorkerCommand `gorm:"column:pending_command;not null;default:'none'" json:"pending_command"`
	Stats           datatypes.JSON `gorm:"column:stats;type:jsonb" json:"stats,omitempty"`
}

func (WorkerStatus) TableName() string { return "worker_status" }
