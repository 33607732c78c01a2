package main

import (
	"fmt"

	"taskhive/todo-api/api"
	"taskhive/todo-api/config"
	"taskhive/todo-api/internal/service"
	"taskhive/todo-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	a, err := api.NewRouter()
	if err != nil {
		panic(err)
	}
	defer a.Queue.Close()

	accounts := store.NewAccounts(a.DB)

	worker, mux := service.NewWorker(accounts)
	if err := worker.Start(mux); err != nil {
		panic(err)
	}
	defer worker.Shutdown()

	scheduler, err := service.NewScheduler()
	if err != nil {
		panic(err)
	}

	if err := scheduler.Start(); err != nil {
		panic(err)
	}
	defer scheduler.Shutdown()

	zap.L().Info("Server starting")

	err = a.Router.Run(fmt.Sprintf(":%d", viper.GetInt("host.port")))
	if err != nil {
		panic(err)
	}
}
