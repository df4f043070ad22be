package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clinicops/pulsewatch/config"
	"github.com/clinicops/pulsewatch/internal/app"
	"github.com/clinicops/pulsewatch/internal/monitorapi"
	"github.com/clinicops/pulsewatch/internal/webserver"
	"go.uber.org/zap"
)

var (
	BuildVersion string

	conffile = flag.String("c", "/etc/pulsewatch.yml", "config file")
	showVer  = flag.Bool("v", false, "print version and exit")
	initdb   = flag.Bool("initdb", false, "drop and recreate the database schema, then exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println("pulsewatch", BuildVersion)
		return
	}

	cfg := config.LoadConfig(*conffile)
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database initialized")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	application.StartBackgroundJobs(ctx)

	server := webserver.Init(application)
	monitorapi.InitRouter()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		zap.S().Infof("received signal %s, shutting down", s)
		cancel()
		_ = server.Echo().Shutdown(context.Background())
	}()

	if err := server.Start(); err != nil {
		zap.S().Info(err.Error())
	}
}
