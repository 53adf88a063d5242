package models

import (
	"time"
)

// Project is a row of engine_projects.
type Project struct {
	ID       int64  `gorm:"primaryKey"`
	Name     string `gorm:"size:256"`
	HasScore bool
}

func (Project) TableName() string { return "engine_projects" }

// User is a row of the Django auth_user table.
type User struct {
	ID          int64 `gorm:"primaryKey"`
	Password    string
	LastLogin   *time.Time
	IsSuperuser bool
	Username    string
	FirstName   string
	LastName    string
	Email       string
	IsStaff     bool
	IsActive    bool
	DateJoined  time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string { return "auth_user" }

type ProjectUser struct {
	ID        int64 `gorm:"primaryKey"`
	ProjectID int64
	UserID    int64
}

func (ProjectUser) TableName() string { return "engine_projects_users" }

// Task is a row of engine_task. Size is the number of frames.
type Task struct {
	ID              int64 `gorm:"primaryKey"`
	Name            string
	Size            int
	Path            string
	Mode            string
	OwnerID         *int64
	AssigneeID      *int64
	BugTracker      string
	CreatedDate     time.Time `gorm:"autoCreateTime"`
	UpdatedDate     time.Time `gorm:"autoUpdateTime"`
	Overlap         int
	ZOrder          bool
	Flipped         bool
	Source          string
	Status          string
	ProjectID       int64
	Score           float64
	LastViewedFrame int
	VideoID         int64
}

func (Task) TableName() string { return "engine_task" }

// DataDir is where the task's frame images live, relative to the frame store.
func (t *Task) DataDir() string {
	if t.Path == "" {
		return "data"
	}
	return t.Path + "/data"
}

type TaskSource struct {
	ID         int64 `gorm:"primaryKey"`
	TaskID     int64
	SourceName string
	Frame      int
}

func (TaskSource) TableName() string { return "engine_tasksource" }

type Segment struct {
	ID         int64 `gorm:"primaryKey"`
	TaskID     int64
	StartFrame int
	StopFrame  int
}

func (Segment) TableName() string { return "engine_segment" }

type Job struct {
	ID         int64 `gorm:"primaryKey"`
	SegmentID  int64
	AssigneeID *int64
	Status     string
	MaxShapeID int64
}

func (Job) TableName() string { return "engine_job" }

// ScoreUpdate is one entry of a score update request.
type ScoreUpdate struct {
	VideoID *int64   `json:"video_id"`
	Score   *float64 `json:"score"`
}
