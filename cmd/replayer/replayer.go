package replayer

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"orderexecutor/src/database"
	"orderexecutor/src/repository"
	"orderexecutor/src/replay"
)

// Replayer reconstructs one order's state from the durable audit trail and
// reports any divergence from the stored row.
type Replayer struct {
	ClientOrderID string
}

func (t *Replayer) Start() error {
	if t.ClientOrderID == "" {
		return errors.New("client order id not set")
	}

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	result, err := replay.Rebuild(context.Background(), repository.NewOrderRepository(), t.ClientOrderID)
	if err != nil {
		logrus.WithError(err).WithField("client_order_id", t.ClientOrderID).
			Error("Failed to rebuild order from audit trail")
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return err
	}

	if !result.Consistent {
		logrus.WithField("conflicts", len(result.Conflicts)).
			Warn("audit trail diverges from stored order")
	}

	return nil
}
