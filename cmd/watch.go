package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"coldcopy/internal/daemon"
	"coldcopy/internal/engine"
	"coldcopy/internal/repository"
	"coldcopy/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch [source] [destination]",
	Short: "Watch the source and back it up whenever it settles after changes",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer func() { _ = log.Sync() }()

	absSrc, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid src path: %w", err)
	}
	absDst, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("invalid dst path: %w", err)
	}

	name := filepath.Base(absSrc)

	watcher, err := watch.New(cfg.BufferSize, cfg.IgnoreList, log)
	if err != nil {
		return err
	}
	if err := watcher.Watch(absSrc); err != nil {
		return err
	}

	state := daemon.NewState(absSrc, absDst)
	srv := daemon.NewServer(state, repository.NewRunRepository(), cfg.DaemonPort, log)
	srv.Start()

	runBackup := func() {
		state.BeginRun()
		runner := &engine.Runner{
			Src:            absSrc,
			Dst:            absDst,
			Name:           name,
			ShallowCompare: cfg.ShallowCompare,
			ArchiveNames:   cfg.ArchiveList,
			IgnoreNames:    cfg.IgnoreList,
			Log:            log,
		}
		result, err := runner.Run()
		state.EndRun(result, err)
		recordRun(name, absSrc, absDst, false, result, err)
		if err != nil {
			log.Error("backup run failed",
				zap.Error(err))
		}
	}

	// one run up front so the destination is current before we wait
	runBackup()

	triggers := watch.Trigger(watcher.Events(),
		time.Duration(cfg.DebounceMS)*time.Millisecond)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("coldcopy daemon started",
		zap.String("src", absSrc),
		zap.String("dst", absDst),
		zap.Int("port", cfg.DaemonPort))

loop:
	for {
		select {
		case sig := <-sigCh:
			log.Info("shutting down",
				zap.String("signal", sig.String()))
			break loop

		case <-srv.StopCh():
			log.Info("stop requested via API")
			break loop

		case _, ok := <-triggers:
			if !ok {
				break loop
			}
			log.Info("source changed, starting backup")
			runBackup()
		}
	}

	watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
