package node

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/razeblock/raze/src/common"
	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/raze"
)

// workRequestTimeout bounds each remote work request.
const workRequestTimeout = 30 * time.Second

type workRequest struct {
	Action string `json:"action"`
	Hash   string `json:"hash"`
}

type workResponse struct {
	Work string `json:"work"`
}

// WorkCoordinator races the local work pool against configured work peers
// and takes whichever answer lands first.
type WorkCoordinator struct {
	logger *logrus.Entry
	pool   *crypto.WorkPool
	peers  []string
	client *http.Client
}

// NewWorkCoordinator creates a coordinator over pool and the given peer
// URLs.
func NewWorkCoordinator(pool *crypto.WorkPool, peerURLs []string, logger *logrus.Entry) *WorkCoordinator {
	return &WorkCoordinator{
		logger: logger,
		pool:   pool,
		peers:  peerURLs,
		client: &http.Client{Timeout: workRequestTimeout},
	}
}

// Generate computes valid work for root. It returns false only when every
// source failed or was cancelled.
func (w *WorkCoordinator) Generate(root raze.Hash) (uint64, bool) {
	if len(w.peers) == 0 {
		return w.pool.Generate(root[:])
	}

	results := make(chan uint64, len(w.peers)+1)
	var pending sync.WaitGroup

	pending.Add(1)
	go func() {
		defer pending.Done()
		if nonce, ok := w.pool.Generate(root[:]); ok {
			results <- nonce
		}
	}()

	for _, peer := range w.peers {
		pending.Add(1)
		go func(url string) {
			defer pending.Done()
			if nonce, ok := w.requestWork(url, root); ok {
				results <- nonce
			}
		}(peer)
	}

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()

	select {
	case nonce := <-results:
		w.pool.Cancel()
		w.cancelPeers(root)
		return nonce, true
	case <-done:
		select {
		case nonce := <-results:
			return nonce, true
		default:
			return 0, false
		}
	}
}

// Cancel aborts local generation and tells every work peer to stop.
func (w *WorkCoordinator) Cancel(root raze.Hash) {
	w.pool.Cancel()
	w.cancelPeers(root)
}

func (w *WorkCoordinator) requestWork(url string, root raze.Hash) (uint64, bool) {
	body, err := json.Marshal(workRequest{Action: "work_generate", Hash: common.EncodeToString(root[:])})
	if err != nil {
		return 0, false
	}
	resp, err := w.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.logger.WithError(err).WithField("peer", url).Debug("work request")
		return 0, false
	}
	defer resp.Body.Close()

	var decoded workResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		w.logger.WithError(err).WithField("peer", url).Debug("work response")
		return 0, false
	}
	nonce, err := strconv.ParseUint(decoded.Work, 16, 64)
	if err != nil {
		w.logger.WithField("peer", url).Debug("malformed work response")
		return 0, false
	}
	if !crypto.WorkValidate(root[:], nonce) {
		w.logger.WithField("peer", url).Warn("work peer returned invalid work")
		return 0, false
	}
	return nonce, true
}

func (w *WorkCoordinator) cancelPeers(root raze.Hash) {
	for _, peer := range w.peers {
		body, err := json.Marshal(workRequest{Action: "work_cancel", Hash: common.EncodeToString(root[:])})
		if err != nil {
			continue
		}
		if resp, err := w.client.Post(peer, "application/json", bytes.NewReader(body)); err == nil {
			resp.Body.Close()
		}
	}
}
