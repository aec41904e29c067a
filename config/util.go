package config

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// maxRemoteConfigSize bounds a configuration fetched over http.
const maxRemoteConfigSize = 1 << 20

func isRemote(from string) bool {
	return strings.HasPrefix(from, "http://") || strings.HasPrefix(from, "https://")
}

func unmarshalFromURL(ctx context.Context, from string, to interface{}) error {
	u, err := url.ParseRequestURI(from)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid URL: %s", from)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, from, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create http request")
	}
	req.Header.Set("Accept", "application/yaml")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send http request")
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			log.WithError(err).Error("Failed to close response body")
		}
	}(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("http request to %v failed with status code %d", u.Host, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfigSize))
	if err != nil {
		return errors.Wrap(err, "failed to read http response")
	}
	if err := yaml.UnmarshalStrict(b, to); err != nil {
		return errors.Wrap(err, "failed to unmarshal remote yaml")
	}
	return nil
}

func unmarshalFromFile(from string, to interface{}) error {
	b, err := os.ReadFile(filepath.Clean(from)) // #nosec G304
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	if err := yaml.UnmarshalStrict(b, to); err != nil {
		return errors.Wrap(err, "failed to unmarshal yaml file")
	}
	return nil
}
