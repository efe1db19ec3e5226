package wsledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func newGateway(t *testing.T, serve func(conn *websocket.Conn)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/events/subscribe" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLedgerClient(t *testing.T) {
	ctx := context.Background()

	t.Run("streams_decoded_events", func(t *testing.T) {
		payload, err := json.Marshal(domain.JobCreated{
			EventKey: domain.EventKey{TxHash: "aa", LogIndex: 1},
			JobID:    "job-1", ClientID: "client-1", TotalBudget: 1000,
		})
		require.NoError(t, err)

		srv := newGateway(t, func(conn *websocket.Conn) {
			require.NoError(t, conn.WriteJSON(eventEnvelope{
				Type: domain.EventTypeJobCreated, Payload: payload,
			}))
			// Hold the connection open until the peer goes away.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		})

		c, err := NewLedgerClient(srv.URL)
		require.NoError(t, err)
		require.NoError(t, c.Start(ctx))
		defer c.Close()

		select {
		case event := <-c.GetEventsChannel():
			created, ok := event.(domain.JobCreated)
			require.True(t, ok)
			require.Equal(t, "job-1", created.JobID)
			require.Equal(t, domain.EventKey{TxHash: "aa", LogIndex: 1}, event.Key())
		case <-time.After(2 * time.Second):
			t.Fatal("no event received")
		}
	})

	t.Run("close_unblocks_pending_read", func(t *testing.T) {
		srv := newGateway(t, func(conn *websocket.Conn) {
			// Never write: the client's read stays pending until it closes.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		})

		c, err := NewLedgerClient(srv.URL)
		require.NoError(t, err)
		require.NoError(t, c.Start(ctx))

		c.Close()

		select {
		case _, open := <-c.GetEventsChannel():
			require.False(t, open)
		case <-time.After(2 * time.Second):
			t.Fatal("events channel not closed on shutdown")
		}
	})
}
