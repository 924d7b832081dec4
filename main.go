package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/khaledhikmat/vs-bench/model"
	"github.com/khaledhikmat/vs-bench/pipeline"
	"github.com/khaledhikmat/vs-bench/service/config"
	"github.com/khaledhikmat/vs-bench/service/lgr"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 || args[0] == "" {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Usage: %s <video_path>\n", filepath.Base(os.Args[0]))
		return 1
	}
	videoPath := args[0]

	// Load env vars if we are in DEV mode
	if err := config.LoadDotEnv(); err != nil {
		lgr.Logger.Error("error loading .env file", lgr.Err(err))
		return 1
	}

	cfgSvc, err := config.NewEnv()
	if err != nil {
		lgr.Logger.Error("invalid configuration", lgr.Err(err))
		return 1
	}

	logCloser := lgr.Setup(lgr.Options{
		Level: cfgSvc.GetLogLevel(),
		File:  cfgSvc.GetLogFile(),
	})
	defer logCloser.Close()

	runID := uuid.New()
	rootCtx := lgr.WithTraceID(context.Background(), runID)
	canxCtx, canxFn := context.WithCancel(rootCtx)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			lgr.Logger.InfoContext(canxCtx,
				"received kill signal",
				slog.Any("signal", sig),
			)
			canxFn()
		case <-canxCtx.Done():
		}
	}()

	opts := []pipeline.Option{
		pipeline.WithRunID(runID.String()),
		pipeline.WithReporter(pipeline.NewConsoleReporter(os.Stdout, lgr.ParseLevel(cfgSvc.GetLogLevel()) < slog.LevelInfo)),
	}
	if fn := cfgSvc.GetDetectionLogFile(); fn != "" {
		detLog := pipeline.NewDetectionLog(fn, runID.String())
		defer detLog.Close()
		opts = append(opts, pipeline.WithDetectionSink(detLog))
	}

	lgr.Logger.InfoContext(canxCtx,
		"detection run starting",
		slog.String("runID", runID.String()),
		slog.String("video", videoPath),
		slog.String("model", cfgSvc.GetModelPath()),
	)

	res := pipeline.NewLoop(pipeline.NewConfig(cfgSvc), opts...).Run(canxCtx, videoPath)
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
	}
	if !res.State.Terminal() || res.State == model.StateFailed {
		return 1
	}
	return 0
}
