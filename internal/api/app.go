package api

import (
	"context"
	"time"

	"github.com/kdimtricp/cvat-api/internal/auth"
	"github.com/kdimtricp/cvat-api/internal/models"
	"github.com/kdimtricp/cvat-api/internal/tasks"
)

type TaskService interface {
	Annotations(ctx context.Context, projectName string, sources []string) ([]*tasks.TaskAnnotations, error)
	Statuses(ctx context.Context, projectName string, sources []string) ([]tasks.TaskStatus, error)
	TasksByStatus(ctx context.Context, projectName string, statuses []string) (map[string]*tasks.StatusGroup, error)
	CountFrames(ctx context.Context, projectName string) (int64, error)
	UpdateScores(ctx context.Context, projectName string, updates []models.ScoreUpdate) (int, error)
	Watershed(ctx context.Context, projectName, taskName string, sources []string) (*tasks.WatershedArchive, error)
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	CanAccess(ctx context.Context, user *models.User, projectNames []string) (bool, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Tasks  TaskService
	Users  UserStore
	Tokens *auth.JWTManager

	// DB backs the readiness check. Nil reports ready.
	DB Pinger

	// APISecret, when set, lets callers skip token and project checks.
	APISecret string

	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}
