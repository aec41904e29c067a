package performance

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "performance")
