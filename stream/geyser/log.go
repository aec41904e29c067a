package geyser

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "geyser")
