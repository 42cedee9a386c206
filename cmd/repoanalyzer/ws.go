package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sattwyk/repoanalyzer/internal/analyzer"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

type streamSummary struct {
	Files      int      `json:"files"`
	Folders    int      `json:"folders"`
	Complexity int      `json:"complexity"`
	TechStack  []string `json:"tech_stack"`
	CommitSHA  string   `json:"commit_sha"`
	Truncated  bool     `json:"truncated,omitempty"`
}

// streamMessage is one websocket frame. The full result is fetched over
// GET /api/sessions/{id}; the stream carries only the summary.
type streamMessage struct {
	Type       string         `json:"type"`
	State      analyzer.State `json:"state"`
	Owner      string         `json:"owner,omitempty"`
	Repo       string         `json:"repo,omitempty"`
	Generation uint64         `json:"generation"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  analyzer.Kind  `json:"error_kind,omitempty"`
	Summary    *streamSummary `json:"summary,omitempty"`
}

func newStreamMessage(snap analyzer.Snapshot) streamMessage {
	msg := streamMessage{
		Type:       "snapshot",
		State:      snap.State,
		Owner:      snap.Owner,
		Repo:       snap.Repo,
		Generation: snap.Generation,
		Error:      snap.Error,
		ErrorKind:  snap.ErrorKind,
	}
	if res := snap.Result; res != nil {
		msg.Summary = &streamSummary{
			Files:      res.FileCount(),
			Folders:    res.FolderCount(),
			Complexity: res.Complexity,
			TechStack:  res.TechStack,
			CommitSHA:  res.CommitSHA,
			Truncated:  res.Truncated,
		}
	}
	return msg
}

// handleStream upgrades to a websocket that sends the current snapshot and
// then one message per state change, until the client goes away or the
// session is closed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.WebsocketConnected()
	defer s.metrics.WebsocketDisconnected()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		log.Printf("stream set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	// Reader: only control frames matter; any read error ends the stream
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshots, unsubscribe := sess.Analyzer.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(streamWriteWait))
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(newStreamMessage(snap)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// parseOrigin returns the host[:port] of an Origin header value
func parseOrigin(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}
