// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	systemd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/icke2063/threadpool/internal/concurrent"
	"github.com/icke2063/threadpool/pkg/config"
	"github.com/icke2063/threadpool/pkg/logger"
	"github.com/icke2063/threadpool/pkg/monitoring"
)

func newRunCmd() *cobra.Command {
	var configPath string
	var taskCount int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a pool, submit synthetic tasks, and print live stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPool(configPath, taskCount)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().IntVarP(&taskCount, "tasks", "n", 50, "number of synthetic tasks to submit")
	return cmd
}

func runPool(configPath string, taskCount int) error {
	root, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, lerr := zapcore.ParseLevel(root.Logging.Level)
	if lerr != nil {
		level = zapcore.InfoLevel
	}
	logger.Configure(level, root.Logging.File)
	log := logger.GetLogger("cmd", "threadpoolctl")

	reg := prometheus.NewRegistry()
	pool, err := concurrent.New(concurrent.Config{
		Name:        root.Pool.Name,
		WorkerCount: root.Pool.WorkerCount,
		Manual:      !root.Pool.AutoStart,
		Registerer:  reg,
	})
	if err != nil {
		return err
	}
	pool.SetLowWatermark(root.Pool.LowWatermark)
	pool.SetHighWatermark(root.Pool.HighWatermark)
	if root.Pool.ControllerIdle.Duration > 0 {
		pool.SetControllerIdle(root.Pool.ControllerIdle.Duration)
	}
	if root.Pool.WorkerIdle.Duration > 0 {
		pool.SetWorkerIdle(root.Pool.WorkerIdle.Duration)
	}
	defer pool.Shutdown()

	var monitor *monitoring.Server
	if root.Monitoring.Enabled {
		monitor = monitoring.NewServer(root.Monitoring.Addr, pool, reg)
		monitor.Start()
		log.Info("monitoring server listening", logger.String("addr", root.Monitoring.Addr))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = monitor.Stop(ctx)
		}()
	}

	for i := 0; i < taskCount; i++ {
		// Synthetic task: sleeps for a random 0-19ms.
		d := time.Duration(rand.Intn(20)) * time.Millisecond
		task := concurrent.NewTask(func() { time.Sleep(d) })
		task.SetPriority(uint8(rand.Intn(int(concurrent.MaxPriority) + 1)))
		if _, submitErr := pool.Submit(task, concurrent.Default); submitErr != nil {
			log.Error("submit failed", logger.Error(submitErr))
		}
	}

	if ok, _ := systemd.SdNotify(false, systemd.SdNotifyReady); ok {
		log.Info("notified systemd readiness")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			log.Info("shutting down")
			return nil
		case <-ticker.C:
			log.Info("pool status",
				logger.Int("ready", pool.ReadyCount()),
				logger.Int("delayed", pool.DelayedCount()),
				logger.Int("workers", pool.WorkerCount()))
			if pool.ReadyCount() == 0 && pool.DelayedCount() == 0 {
				return nil
			}
		}
	}
}
