package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kdimtricp/cvat-api/internal/auth"
	"github.com/kdimtricp/cvat-api/internal/database"
	"github.com/kdimtricp/cvat-api/internal/logging"
	"github.com/kdimtricp/cvat-api/internal/metrics"
	"github.com/kdimtricp/cvat-api/internal/models"
	"github.com/kdimtricp/cvat-api/internal/tasks"
	"github.com/kdimtricp/cvat-api/internal/validation"
)

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// ReadyHandler reports whether the database answers.
func (app *App) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if app.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.DB.Ping(ctx); err != nil {
			writeMessage(w, r, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not Found", http.StatusNotFound)
}

// splitList splits a comma separated parameter, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

type projectQuery struct {
	Project string `query:"project.name" validate:"required"`
}

type sourceQuery struct {
	Project string `query:"project.name" validate:"required"`
	Source  string `query:"source" validate:"required"`
}

type watershedQuery struct {
	Project string `query:"project.name" validate:"required"`
	Task    string `query:"task.name" validate:"required"`
	Source  string `query:"source"`
}

// checkQuery answers 401 "<param> is missing!" for the first absent parameter.
func checkQuery(w http.ResponseWriter, r *http.Request, q any) bool {
	err := validation.ValidateStruct(q)
	if err == nil {
		return true
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		writeMessage(w, r, http.StatusUnauthorized, verr.First())
		return false
	}
	writeMessage(w, r, http.StatusBadRequest, err.Error())
	return false
}

func (app *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	reject := func() {
		metrics.RecordLogin(false)
		w.Header().Set("WWW-Authenticate", `Basic realm="Login required!"`)
		http.Error(w, "Could not verify", http.StatusUnauthorized)
	}

	username, password, ok := r.BasicAuth()
	if !ok || username == "" || password == "" {
		reject()
		return
	}

	user, err := app.Users.FindByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logging.Ctx(r.Context()).Error().Err(err).Msg("failed to load user")
		}
		reject()
		return
	}

	valid, err := auth.CheckPassword(password, user.Password)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("username", username).Msg("unsupported password hash")
	}
	if !valid {
		reject()
		return
	}

	token, err := app.Tokens.GenerateToken(user.ID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to issue token")
		writeMessage(w, r, http.StatusInternalServerError, "Could not issue token")
		return
	}

	metrics.RecordLogin(true)
	writeJSON(w, r, http.StatusOK, map[string]string{"api_key": token})
}

func (app *App) TaskAnnotationsHandler(w http.ResponseWriter, r *http.Request) {
	q := sourceQuery{
		Project: r.URL.Query().Get("project.name"),
		Source:  r.URL.Query().Get("source"),
	}
	if !checkQuery(w, r, q) {
		return
	}

	result, err := app.Tasks.Annotations(r.Context(), q.Project, splitList(q.Source))
	if err != nil {
		var missing *tasks.MissingTaskError
		if errors.As(err, &missing) {
			writeMessage(w, r, http.StatusBadRequest, missing.Error())
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("project", q.Project).Msg("failed to read annotations")
		writeMessage(w, r, http.StatusInternalServerError, "There is no tags")
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

func (app *App) TaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	q := sourceQuery{
		Project: r.URL.Query().Get("project.name"),
		Source:  r.URL.Query().Get("source"),
	}
	if !checkQuery(w, r, q) {
		return
	}

	statuses, err := app.Tasks.Statuses(r.Context(), q.Project, splitList(q.Source))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to read statuses")
		writeMessage(w, r, http.StatusInternalServerError, "There is no status to show !")
		return
	}

	writeJSON(w, r, http.StatusOK, statuses)
}

func (app *App) TasksByStatusHandler(w http.ResponseWriter, r *http.Request) {
	q := projectQuery{Project: r.URL.Query().Get("project.name")}
	if !checkQuery(w, r, q) {
		return
	}

	groups, err := app.Tasks.TasksByStatus(r.Context(), q.Project, splitList(r.URL.Query().Get("status")))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to group tasks")
		writeMessage(w, r, http.StatusInternalServerError, "There is no status to show !")
		return
	}

	writeJSON(w, r, http.StatusOK, groups)
}

func (app *App) CountFramesHandler(w http.ResponseWriter, r *http.Request) {
	q := projectQuery{Project: r.URL.Query().Get("project.name")}
	if !checkQuery(w, r, q) {
		return
	}

	total, err := app.Tasks.CountFrames(r.Context(), q.Project)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to count frames")
		writeMessage(w, r, http.StatusInternalServerError, "There is no count of frames to show !")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(strconv.FormatInt(total, 10)))
}

func (app *App) UpdateScoresHandler(w http.ResponseWriter, r *http.Request) {
	q := projectQuery{Project: r.URL.Query().Get("project.name")}
	if !checkQuery(w, r, q) {
		return
	}

	var updates []models.ScoreUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "can't update scores")
		return
	}

	n, err := app.Tasks.UpdateScores(r.Context(), q.Project, updates)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("updated", n).Msg("failed to update scores")
		writeMessage(w, r, http.StatusInternalServerError, "can't update scores")
		return
	}

	writeMessage(w, r, http.StatusOK, fmt.Sprintf("updated successfully %d videos", n))
}

func (app *App) WatershedImagesHandler(w http.ResponseWriter, r *http.Request) {
	q := watershedQuery{
		Project: r.URL.Query().Get("project.name"),
		Task:    r.URL.Query().Get("task.name"),
		Source:  r.URL.Query().Get("source"),
	}
	if !checkQuery(w, r, q) {
		return
	}

	archive, err := app.Tasks.Watershed(r.Context(), q.Project, q.Task, splitList(q.Source))
	if err != nil {
		var missing *tasks.MissingTaskError
		if errors.As(err, &missing) {
			writeMessage(w, r, http.StatusBadRequest, missing.Error())
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to resolve watershed images")
		writeMessage(w, r, http.StatusInternalServerError, "Cannot get images!")
		return
	}

	var buf bytes.Buffer
	if _, err := archive.Stream(r.Context(), &buf); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to build watershed archive")
		writeMessage(w, r, http.StatusInternalServerError, "Cannot get images!")
		return
	}

	filename := fmt.Sprintf("%d_images_%s.zip", archive.Count(), q.Project)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
