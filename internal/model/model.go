package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&CommandLog{},
	&LifecycleLog{},
}

// Session is one simulator run.
type Session struct {
	gorm.Model
	StartTime      time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_session_start"`
	Topology       string         `json:"topology" gorm:"size:255"`
	Points         int            `json:"points"`
	Ways           int            `json:"ways"`
	TickIntervalMs int64          `json:"tickIntervalMs"`
	Runway         string         `json:"runway" gorm:"size:64"`
	Gates          datatypes.JSON `json:"gates" gorm:"type:jsonb;default:'[]'"`
}

func (*Session) TableName() string {
	return "sessions"
}

// CommandLog is one command taken off the ingestion queue, applied or not.
type CommandLog struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint           `json:"sessionId" gorm:"index:idx_commandlog_session_id"`
	Session   Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Seq       uint64         `json:"seq" gorm:"index:idx_commandlog_seq"`
	Tick      uint64         `json:"tick"`
	Source    string         `json:"source" gorm:"size:64"`
	Line      string         `json:"line" gorm:"size:512"`
	Command   string         `json:"command" gorm:"size:32;index:idx_commandlog_command"`
	Args      datatypes.JSON `json:"args" gorm:"type:jsonb;default:'[]'"`
	Received  time.Time      `json:"received" gorm:"type:timestamptz;"`
	Applied   time.Time      `json:"applied" gorm:"type:timestamptz;"`
	Accepted  bool           `json:"accepted"`
	Category  string         `json:"category" gorm:"size:32"`
	Error     string         `json:"error" gorm:"size:512"`
	Result    string         `json:"result" gorm:"size:1024"`
}

func (*CommandLog) TableName() string {
	return "command_logs"
}

// LifecycleLog is one entity transition: spawn, reroute, arrival, removal
// or an overlay starting and expiring.
type LifecycleLog struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint           `json:"sessionId" gorm:"index:idx_lifecyclelog_session_id"`
	Session   Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64         `json:"tick" gorm:"index:idx_lifecyclelog_tick"`
	Time      time.Time      `json:"time" gorm:"type:timestamptz;"`
	Kind      string         `json:"kind" gorm:"size:32;index:idx_lifecyclelog_kind"`
	EntityID  string         `json:"entityId" gorm:"size:32;index:idx_lifecyclelog_entity_id"`
	Entity    string         `json:"entity" gorm:"size:16"`
	Model     string         `json:"model" gorm:"size:32"`
	Gate      string         `json:"gate" gorm:"size:32"`
	Anchor    string         `json:"anchor" gorm:"size:64"`
	Position  geom.Point     `json:"position"`
	Route     datatypes.JSON `json:"route" gorm:"type:jsonb;default:'[]'"`
}

func (*LifecycleLog) TableName() string {
	return "lifecycle_logs"
}
