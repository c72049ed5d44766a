package node

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/razeblock/raze/src/common"
)

// callbackTimeout bounds each notification request.
const callbackTimeout = 10 * time.Second

type callbackPayload struct {
	Account string `json:"account"`
	Hash    string `json:"hash"`
	Block   string `json:"block"`
	Amount  string `json:"amount"`
}

// Callback POSTs accepted blocks to an external observer URL.
type Callback struct {
	url    string
	logger *logrus.Entry
	client *http.Client
}

// NewCallback creates a callback poster, inactive when url is empty.
func NewCallback(url string, logger *logrus.Entry) *Callback {
	return &Callback{
		url:    url,
		logger: logger,
		client: &http.Client{Timeout: callbackTimeout},
	}
}

// Notify posts event to the configured URL from its own goroutine.
func (c *Callback) Notify(event BlockEvent) {
	if c.url == "" {
		return
	}
	payload := callbackPayload{
		Account: event.Account.String(),
		Hash:    event.Block.Hash().String(),
		Block:   common.EncodeToString(event.Block.Marshal()),
		Amount:  event.Amount.String(),
	}
	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			return
		}
		resp, err := c.client.Post(c.url, "application/json", bytes.NewReader(body))
		if err != nil {
			c.logger.WithError(err).WithField("url", c.url).Debug("callback")
			return
		}
		resp.Body.Close()
	}()
}
