package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"orderexecutor/cmd/replayer"
	"orderexecutor/cmd/runner"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Orderexec CMD"
	app.Usage = "The order execution engine command line interface"

	app.Commands = []cli.Command{
		engineCMD,
		replayCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	engineCMD = cli.Command{
		Name:        "engine",
		Usage:       "run the execution engine and its HTTP intake",
		Action:      engineAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the execution engine CMD`,
	}
	replayCMD = cli.Command{
		Name:      "replay",
		Usage:     "rebuild one order from the audit trail",
		Action:    replayAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "client-order-id",
				Usage: "caller-assigned order identifier to replay",
			},
		},
		Description: `Replay an order's audit trail and report divergence`,
	}
)

func engineAction(_ *cli.Context) error {

	logrus.Info("Starting engine CMD")
	logrus.WithField("cmd", "engine")

	engineRunner := &runner.Runner{}
	err := engineRunner.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func replayAction(c *cli.Context) error {

	logrus.Info("Starting replay CMD")
	logrus.WithField("cmd", "replay")

	trailReplayer := &replayer.Replayer{
		ClientOrderID: c.String("client-order-id"),
	}
	err := trailReplayer.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
