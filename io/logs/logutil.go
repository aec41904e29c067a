// Package logs configures persistent logging and scrubs secrets from
// endpoint URLs before they are logged.
package logs

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const logFilePermissions = 0600

func addLogWriter(w io.Writer) {
	mw := io.MultiWriter(logrus.StandardLogger().Out, w)
	logrus.SetOutput(mw)
}

// ConfigurePersistentLogging duplicates log output to logFileName, creating
// its parent directory when missing. It returns the opened file so callers can
// close it on shutdown.
func ConfigurePersistentLogging(logFileName string) (*os.File, error) {
	logrus.WithField("logFileName", logFileName).Info("Logs will be made persistent")
	if err := os.MkdirAll(filepath.Dir(logFileName), 0700); err != nil {
		return nil, errors.Wrap(err, "could not create log directory")
	}
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "could not open log file")
	}
	addLogWriter(f)
	logrus.Info("File logging initialized")
	return f, nil
}

// MaskCredentialsLogging hides the parts of an endpoint URL that commonly carry
// access tokens: user info, path, query and fragment. Scheme and host are kept.
// Strings that are not absolute URLs are returned unchanged.
func MaskCredentialsLogging(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString("***@")
	}
	b.WriteString(u.Host)
	if len(u.RequestURI()) > 1 {
		b.WriteString("/***")
	}
	if u.Fragment != "" {
		b.WriteString("#***")
	}
	return b.String()
}
