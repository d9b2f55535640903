package main

import (
	"github.com/sirupsen/logrus"

	"github.com/code-payments/eventflow/pkg/eventflow/app"
)

func main() {
	if err := app.Run(app.NewSyncApp()); err != nil {
		logrus.WithError(err).Fatal("error running eventflow sync")
	}
}
