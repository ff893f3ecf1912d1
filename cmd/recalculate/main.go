// Command recalculate queues a daily-limit recalculation for every user with a
// completed profile, e.g. after the prompt or RDI table changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"fitora-backend/internal/app"
	"fitora-backend/internal/config"
	"fitora-backend/internal/platform/logger"
	mysqlClient "fitora-backend/internal/platform/mysql"
	rabbitmqClient "fitora-backend/internal/platform/rabbitmq"
	"fitora-backend/internal/repository"
)

func main() {
	var dryRun bool
	var limit int
	flag.BoolVar(&dryRun, "dry-run", false, "print the users that would be queued")
	flag.IntVar(&limit, "limit", 0, "queue at most this many users")
	flag.Parse()

	_ = godotenv.Load()
	if err := run(dryRun, limit); err != nil {
		fmt.Fprintf(os.Stderr, "recalculate: %v\n", err)
		os.Exit(1)
	}
}

func run(dryRun bool, limit int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), false)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ids, err := repository.NewUserRepository(db).ListIDsWithCompletedProfile(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	if dryRun {
		for _, id := range ids {
			fmt.Println(id)
		}
		log.Info("dry run complete", "users", len(ids))
		return nil
	}

	conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.DailyLimitQueue)
	if err != nil {
		return err
	}
	defer conn.Close()

	publisher := rabbitmqClient.NewJobPublisher(conn, cfg.RabbitMQ.DailyLimitQueue)
	queued := 0
	for _, id := range ids {
		if err := publisher.Publish(ctx, app.DailyLimitJob{UserID: id}); err != nil {
			log.Warn("queue recalculation failed", "user_id", id, "error", err)
			continue
		}
		queued++
	}
	log.Info("recalculation jobs queued", "queued", queued, "total", len(ids))
	return nil
}
