package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/kdimtricp/cvat-api/internal/database"
	"github.com/kdimtricp/cvat-api/internal/logging"
	"github.com/kdimtricp/cvat-api/internal/metrics"
	"github.com/kdimtricp/cvat-api/internal/models"
)

type ctxKey int

const (
	userKey ctxKey = iota
	secretKey
)

// requestIDWithLogging keeps an incoming X-Request-ID or assigns a new uuid,
// and puts it in both chi's and the logging context.
func requestIDWithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = logging.GenerateRequestID()
		}
		w.Header().Set(middleware.RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(ctx, id)))
	})
}

const maxRequestIDLen = 128

// requestLogger logs and measures every request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), elapsed)

		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Msg("request")
	})
}

func (app *App) cors() func(http.Handler) http.Handler {
	origins := app.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "api_key"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	})
}

func (app *App) rateLimit() func(http.Handler) http.Handler {
	if app.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	window := app.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		app.RateLimitRequests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeMessage(w, r, http.StatusTooManyRequests, "Too many requests")
		}),
	)
}

// maxSecretBody caps how much of a body is inspected for a secret. Larger
// bodies are passed on untouched.
const maxSecretBody = 1 << 20

// bodySecret reads the "secret" field of a JSON object body and restores
// the body for the handler.
func bodySecret(r *http.Request) string {
	if r.Body == nil || (r.Method != http.MethodPost && r.Method != http.MethodPut) {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxSecretBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), r.Body), r.Body}
	if err != nil || len(data) == 0 || len(data) == maxSecretBody {
		return ""
	}

	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Secret
}

func (app *App) hasSecret(r *http.Request) bool {
	if app.APISecret == "" {
		return false
	}
	secret := r.URL.Query().Get("secret")
	if secret == "" {
		secret = bodySecret(r)
	}
	return secret == app.APISecret
}

// authenticate accepts the shared secret or an api_key token.
func (app *App) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.hasSecret(r) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), secretKey, true)))
			return
		}

		token := r.Header.Get("api_key")
		if token == "" {
			writeMessage(w, r, http.StatusUnauthorized, "Token is missing ! Login Required")
			return
		}

		claims, err := app.Tokens.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("token rejected")
			writeMessage(w, r, http.StatusUnauthorized, "Token is invalid!")
			return
		}

		user, err := app.Users.FindByID(r.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				logging.Ctx(r.Context()).Error().Err(err).Msg("failed to load token user")
			}
			writeMessage(w, r, http.StatusUnauthorized, "Token is invalid!")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// authorize requires token users to belong to every project they name.
func (app *App) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret, _ := r.Context().Value(secretKey).(bool); secret {
			next.ServeHTTP(w, r)
			return
		}

		projects := splitList(r.URL.Query().Get("project.name"))
		if len(projects) == 0 {
			writeMessage(w, r, http.StatusUnauthorized, "Project name is missing!")
			return
		}

		user := userFrom(r.Context())
		if user == nil {
			writeMessage(w, r, http.StatusUnauthorized, "Token is missing ! Login Required")
			return
		}

		ok, err := app.Users.CanAccess(r.Context(), user, projects)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("failed to check project access")
			writeMessage(w, r, http.StatusInternalServerError, "Cannot check authorization")
			return
		}
		if !ok {
			writeMessage(w, r, http.StatusForbidden, "You are not authorized !")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func userFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}
