package wsledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	maxReconnectAttempts = 5
	submitTimeout        = 30 * time.Second
)

// eventEnvelope is the gateway's wire format: a type tag plus the raw event
// payload, which decodes into the matching domain event.
type eventEnvelope struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

type txResponse struct {
	TxHash string `json:"txHash"`
}

// client subscribes to the ledger gateway's websocket event feed and submits
// transactions over its HTTP API. It owns reconnection: transient drops are
// retried with exponential backoff, and only after maxReconnectAttempts
// consecutive failures is the event channel closed.
type client struct {
	gatewayURL string
	httpClient *http.Client

	conn     *websocket.Conn
	connLock *sync.Mutex
	eventsCh chan domain.Event
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewLedgerClient(gatewayURL string) (ports.LedgerClient, error) {
	if _, err := url.Parse(gatewayURL); err != nil {
		return nil, fmt.Errorf("invalid gateway url: %s", err)
	}
	return &client{
		gatewayURL: gatewayURL,
		httpClient: &http.Client{Timeout: submitTimeout},
		connLock:   &sync.Mutex{},
		eventsCh:   make(chan domain.Event),
		stopCh:     make(chan struct{}),
	}, nil
}

func (c *client) Start(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	go c.readLoop()
	return nil
}

func (c *client) GetEventsChannel() <-chan domain.Event {
	return c.eventsCh
}

func (c *client) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.connLock.Lock()
		if c.conn != nil {
			// nolint:errcheck
			c.conn.Close()
		}
		c.connLock.Unlock()
	})
}

func (c *client) connect(ctx context.Context) error {
	wsURL, err := toWebsocketURL(c.gatewayURL)
	if err != nil {
		return err
	}

	var conn *websocket.Conn
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxReconnectAttempts), ctx,
	)
	err = backoff.Retry(func() error {
		var dialErr error
		conn, _, dialErr = websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if dialErr != nil {
			log.WithError(dialErr).Warn("ledger subscription dial failed, retrying")
		}
		return dialErr
	}, policy)
	if err != nil {
		return fmt.Errorf("failed to connect to ledger gateway: %s", err)
	}

	c.connLock.Lock()
	c.conn = conn
	c.connLock.Unlock()
	log.Debugf("subscribed to ledger events at %s", wsURL)
	return nil
}

func (c *client) readLoop() {
	for {
		select {
		case <-c.stopCh:
			close(c.eventsCh)
			return
		default:
		}

		// Snapshot the conn so a concurrent reconnect or Close cannot race
		// the read.
		c.connLock.Lock()
		conn := c.conn
		c.connLock.Unlock()

		var envelope eventEnvelope
		if err := conn.ReadJSON(&envelope); err != nil {
			select {
			case <-c.stopCh:
				close(c.eventsCh)
				return
			default:
			}
			log.WithError(err).Warn("ledger subscription dropped, reconnecting")
			if err := c.connect(context.Background()); err != nil {
				// The mirror cannot make progress without the feed. Surface the
				// failure by closing the channel so the service can shut down.
				log.WithError(err).Error("ledger subscription is gone, giving up")
				close(c.eventsCh)
				return
			}
			continue
		}

		event, err := decodeEvent(envelope)
		if err != nil {
			log.WithError(err).Warnf("discarding undecodable %s event", envelope.Type)
			continue
		}
		select {
		case c.eventsCh <- event:
		case <-c.stopCh:
			close(c.eventsCh)
			return
		}
	}
}

func (c *client) CreateJob(
	ctx context.Context, req ports.CreateJobRequest,
) (ports.TxRef, error) {
	return c.submit(ctx, "/v1/jobs", req)
}

func (c *client) SubmitBid(
	ctx context.Context, req ports.SubmitBidRequest,
) (ports.TxRef, error) {
	return c.submit(ctx, "/v1/bids", req)
}

func (c *client) AcceptBid(
	ctx context.Context, req ports.AcceptBidRequest,
) (ports.TxRef, error) {
	return c.submit(ctx, "/v1/bids/accept", req)
}

func (c *client) ReleaseMilestonePayment(
	ctx context.Context, req ports.ReleaseRequest,
) (ports.TxRef, error) {
	return c.submit(ctx, "/v1/escrows/release", req)
}

func (c *client) RaiseDispute(
	ctx context.Context, req ports.RaiseDisputeRequest,
) (ports.TxRef, error) {
	return c.submit(ctx, "/v1/disputes", req)
}

func (c *client) AssignArbitrators(
	ctx context.Context, req ports.AssignArbitratorsRequest,
) (ports.TxRef, error) {
	return c.submit(ctx, "/v1/disputes/assign", req)
}

func (c *client) submit(
	ctx context.Context, path string, payload interface{},
) (ports.TxRef, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return ports.TxRef{}, fmt.Errorf("failed to serialize submission: %s", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.gatewayURL+path, bytes.NewReader(buf),
	)
	if err != nil {
		return ports.TxRef{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// The gateway deduplicates on this in case a timed-out submission is
	// retried by an operator.
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.TxRef{}, domain.Transientf("failed to submit to ledger gateway: %s", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.TxRef{}, domain.Transientf("failed to read gateway response: %s", err)
	}
	if resp.StatusCode >= 500 {
		return ports.TxRef{}, domain.Transientf(
			"gateway returned %d: %s", resp.StatusCode, string(body),
		)
	}
	if resp.StatusCode >= 400 {
		return ports.TxRef{}, domain.Integrityf(
			"gateway rejected submission with %d: %s", resp.StatusCode, string(body),
		)
	}

	var txResp txResponse
	if err := json.Unmarshal(body, &txResp); err != nil {
		return ports.TxRef{}, fmt.Errorf("malformed gateway response: %s", err)
	}
	return ports.TxRef{TxHash: txResp.TxHash}, nil
}

func toWebsocketURL(gatewayURL string) (string, error) {
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported gateway scheme %s", u.Scheme)
	}
	u.Path = "/v1/events/subscribe"
	return u.String(), nil
}

func decodeEvent(envelope eventEnvelope) (domain.Event, error) {
	var event domain.Event
	var err error
	switch envelope.Type {
	case domain.EventTypeJobCreated:
		event, err = unmarshalEvent[domain.JobCreated](envelope.Payload)
	case domain.EventTypeJobCancelled:
		event, err = unmarshalEvent[domain.JobCancelled](envelope.Payload)
	case domain.EventTypeBidSubmitted:
		event, err = unmarshalEvent[domain.BidSubmitted](envelope.Payload)
	case domain.EventTypeBidRevised:
		event, err = unmarshalEvent[domain.BidRevised](envelope.Payload)
	case domain.EventTypeBidWithdrawn:
		event, err = unmarshalEvent[domain.BidWithdrawn](envelope.Payload)
	case domain.EventTypeBidAccepted:
		event, err = unmarshalEvent[domain.BidAccepted](envelope.Payload)
	case domain.EventTypeMilestoneSubmitted:
		event, err = unmarshalEvent[domain.MilestoneSubmitted](envelope.Payload)
	case domain.EventTypeMilestoneApproved:
		event, err = unmarshalEvent[domain.MilestoneApproved](envelope.Payload)
	case domain.EventTypeMilestoneRejected:
		event, err = unmarshalEvent[domain.MilestoneRejected](envelope.Payload)
	case domain.EventTypeMilestoneReleased:
		event, err = unmarshalEvent[domain.MilestoneReleased](envelope.Payload)
	case domain.EventTypeDisputeRaised:
		event, err = unmarshalEvent[domain.DisputeRaised](envelope.Payload)
	case domain.EventTypeArbitratorsAssigned:
		event, err = unmarshalEvent[domain.ArbitratorsAssigned](envelope.Payload)
	case domain.EventTypeDisputeResolved:
		event, err = unmarshalEvent[domain.DisputeResolved](envelope.Payload)
	case domain.EventTypeDisputeAppealed:
		event, err = unmarshalEvent[domain.DisputeAppealed](envelope.Payload)
	default:
		return nil, fmt.Errorf("unknown event type %s", envelope.Type)
	}
	if err != nil {
		return nil, err
	}
	if event.Key().TxHash == "" {
		return nil, fmt.Errorf("%s event without a transaction hash", envelope.Type)
	}
	return event, nil
}

func unmarshalEvent[T domain.Event](payload json.RawMessage) (domain.Event, error) {
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return event, nil
}
