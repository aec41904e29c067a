package dashboard

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "dashboard")
