// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"taskhive/todo-api/db"
	"taskhive/todo-api/internal/service"
	"taskhive/todo-api/internal/store"
	"taskhive/todo-api/middleware"
	"taskhive/todo-api/pkg/security"

	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type API struct {
	DB     *gorm.DB
	Router *gin.Engine
	Argon  *security.ArgonHash
	Tokens *security.TokenCodec
	Auth   *service.Auth
	Tasks  store.TaskStore
	Queue  *asynq.Client
}

func NewRouter() (*API, error) {
	a := &API{}

	database, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = database

	makeLogger()

	a.Argon = security.New()
	a.Tokens = security.NewTokenCodec(
		viper.GetString("jwt.secret"),
		time.Duration(viper.GetInt("jwt.ttl_minutes"))*time.Minute,
	)
	a.Queue = asynq.NewClient(service.RedisOpt())

	accounts := store.NewAccounts(database)
	a.Auth = service.NewAuth(accounts, a.Argon, a.Tokens, a.Queue)
	a.Tasks = store.NewTasks(database)

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	a.setupRoutes()

	return a, nil
}

// setupRoutes attaches every endpoint to the router. Kept separate
// from NewRouter so tests can wire an API with their own dependencies
func (a *API) setupRoutes() {
	jwt := middleware.NewJWTMiddleware(a.DB, a.Tokens)
	loginLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             5,
	})

	main := a.Router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// HEAD /api/validate		-> Validates a JWT token
		main.HEAD("/validate", jwt, a.Validate)
	}

	users := main.Group("/users", middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/users		-> Returns the profile of a user
		users.GET("", jwt, a.UserFetch)

		// POST /api/users 		-> Registers a new user
		users.POST("", a.UserRegister)

		// POST /api/users/login 	-> Checks credentials and mails a confirmation code
		users.POST("/login", loginLimiter, a.UserLogin)

		// POST /api/users/verify 	-> Confirms a mailed code and returns a JWT token
		users.POST("/verify", a.UserVerify)
	}

	tasks := main.Group("/tasks", jwt, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/tasks 		-> Returns a user's task cards in bulk
		tasks.GET("", a.TaskFetchBulk)

		// GET /api/tasks/:id 		-> Returns a single task card
		tasks.GET("/:id", a.TaskFetch)

		// POST /api/tasks         	-> Creates a new task card
		tasks.POST("", a.TaskCreate)

		// PATCH /api/tasks/:id		-> Edits a task card owned by a user
		tasks.PATCH("/:id", a.TaskEdit)

		// DELETE /api/tasks/:id	-> Deletes a task card owned by a user
		tasks.DELETE("/:id", a.TaskDelete)
	}
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
