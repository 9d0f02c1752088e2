package probe

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/fieldunit/fwwatch/pkg/logging"
	"github.com/sirupsen/logrus"
)

var _ Connectivity = (*HTTP)(nil)

// HTTP checks reachability with a single GET against a well known endpoint.
type HTTP struct {
	log     logging.Logger
	client  *http.Client
	url     string
	timeout time.Duration
}

func NewHTTP(log logging.Logger, url string, timeout time.Duration) *HTTP {
	return &HTTP{
		log:     log,
		client:  &http.Client{},
		url:     url,
		timeout: timeout,
	}
}

// IsConnected is true only for a 200 response received within the timeout.
func (h *HTTP) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		h.log.WithError(err).WithField("url", h.url).Error("unable to build connectivity request")
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.WithError(err).WithField("url", h.url).Debug("connectivity check failed")
		return false
	}
	defer resp.Body.Close()
	// drain so the connection may be reused on the next tick
	_, _ = io.Copy(ioutil.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		h.log.WithFields(logrus.Fields{
			"url":    h.url,
			"status": resp.StatusCode,
		}).Debug("connectivity check returned non-OK status")
		return false
	}
	return true
}
