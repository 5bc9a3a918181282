// Command jobs runs one scheduled task and exits. Cron invokes it every
// minute for daily-prompt and daily for the others.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/jobs"
	"github.com/anonto42/whoami-today/backend/internal/push"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/services"
	"github.com/anonto42/whoami-today/backend/pkg/config"
	"github.com/anonto42/whoami-today/backend/pkg/firebase"
	"github.com/anonto42/whoami-today/backend/pkg/logger"
)

type runtime struct {
	db     *config.DB
	svc    *services.Services
	runner *jobs.Runner
	push   *push.Service
}

func setup(ctx context.Context) (*runtime, error) {
	cfg := config.Load()
	logger.Init(cfg.Env)

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	store := repositories.NewStore(db.Postgres)

	rt := &runtime{db: db, runner: jobs.NewRunner(jobs.NewRedisLocker(db.Redis), nil)}
	var dispatcher push.Dispatcher
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			db.CloseDB()
			return nil, err
		}
		rt.push = push.NewService(push.NewFCMSender(app.MessagingClient), store.Devices, push.Options{
			Workers: cfg.PushWorkers,
			Timeout: cfg.PushTimeout,
		})
		rt.push.Start(context.Background())
		dispatcher = rt.push
	}

	rt.svc = services.New(store, services.Options{
		Dispatcher:    dispatcher,
		ChatMessages:  repositories.NewMongoChatMessageRepository(db.Mongo.Database(cfg.MongoDatabase)),
		AdminUsername: cfg.AdminUsername,
	})
	return rt, nil
}

// close drains queued pushes before the connections go away.
func (rt *runtime) close() {
	if rt.push != nil {
		rt.push.Stop()
	}
	rt.db.CloseDB()
	_ = zap.L().Sync()
}

func runJob(build func(*services.Services) jobs.Job) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		_, err = rt.runner.Run(ctx, build(rt.svc))
		return err
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jobs",
		Short:         "Scheduled tasks for the WhoAmI Today backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   jobs.DailyPromptJob,
		Short: "Send the daily question prompt to users whose local time has come",
		Args:  cobra.NoArgs,
		RunE: runJob(func(svc *services.Services) jobs.Job {
			return jobs.DailyPrompt(svc.Schedule)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   jobs.FriendRequestGCJob,
		Short: "Delete friend requests that were never answered",
		Args:  cobra.NoArgs,
		RunE: runJob(func(svc *services.Services) jobs.Job {
			return jobs.FriendRequestGC(svc.Schedule)
		}),
	})

	var count int
	var timezone string
	selectCmd := &cobra.Command{
		Use:   jobs.SelectQuestionsJob,
		Short: "Pick tomorrow's daily questions",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if _, err := time.LoadLocation(timezone); err != nil {
				return fmt.Errorf("invalid --timezone %q: %w", timezone, err)
			}
			return nil
		},
		RunE: runJob(func(svc *services.Services) jobs.Job {
			loc, _ := time.LoadLocation(timezone)
			return jobs.SelectQuestions(svc.Schedule, loc, count)
		}),
	}
	selectCmd.Flags().IntVar(&count, "count", jobs.DefaultQuestionsPerDay, "number of questions to pick")
	selectCmd.Flags().StringVar(&timezone, "timezone", "Asia/Seoul", "zone whose tomorrow is selected")
	root.AddCommand(selectCmd)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
