package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"orderexecutor/src/database"
	"orderexecutor/src/executors"
	"orderexecutor/src/server"
)

// Runner hosts the execution engine together with its HTTP intake surface.
type Runner struct {
}

func (t *Runner) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	dbConfig := database.GetConfig()
	if dbConfig.EnableDB {
		// Initialize main (read/write) database
		if err := database.InitMainDB(); err != nil {
			logrus.WithError(err).Fatal("Failed to connect to main database")
			return err
		}
	} else {
		logrus.Warn("ENABLE_DB is false, audit trail persistence is off")
	}

	eng, _, err := executors.BuildEngine(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to build execution engine")
		return err
	}

	server.StartServer(server.GetConfig(), eng)

	return nil
}
