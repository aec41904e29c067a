package tracker

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "tracker")

// sigPrefix shortens a signature for logs.
func sigPrefix(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}
