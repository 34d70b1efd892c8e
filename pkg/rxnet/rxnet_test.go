package rxnet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-formflow/pkg/rx"
)

type status struct {
	Count int    `json:"count"`
	State string `json:"state"`
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertEqual[T any](t *testing.T, want, got T) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestGetJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" || r.Header.Get("Authorization") != "token" {
			http.Error(w, "bad headers", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":3,"state":"ready"}`))
	}))
	defer srv.Close()

	got, err := rx.First(testContext(t), GetJSON[status](srv.Client(), srv.URL, WithHeader("Authorization", "token")))
	mustNoError(t, err)
	assertEqual(t, status{Count: 3, State: "ready"}, got)
}

func TestGetJSONReportsStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := rx.First(testContext(t), GetJSON[status](srv.Client(), srv.URL))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || !strings.Contains(statusErr.Body, "missing") {
		t.Fatalf("unexpected status error: %d %q", statusErr.StatusCode, statusErr.Body)
	}
}

func TestGetJSONIsColdPerSubscription(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"count":%d}`, hits.Add(1))
	}))
	defer srv.Close()

	src := GetJSON[status](srv.Client(), srv.URL)
	first, err := rx.First(testContext(t), src)
	mustNoError(t, err)
	second, err := rx.First(testContext(t), src)
	mustNoError(t, err)
	if first.Count != 1 || second.Count != 2 {
		t.Fatalf("expected one request per subscription, got counts %d and %d", first.Count, second.Count)
	}
}

func TestPollRequestsOnEveryTick(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"count":%d}`, hits.Add(1))
	}))
	defer srv.Close()

	values, err := rx.ToSlice(testContext(t), rx.Take(Poll(10*time.Millisecond, GetJSON[status](srv.Client(), srv.URL)), 3))
	mustNoError(t, err)
	assertEqual(t, []status{{Count: 1}, {Count: 2}, {Count: 3}}, values)
}

func TestPollCancelsSlowRequests(t *testing.T) {
	var cancelled atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") == "" {
			_, _ = w.Write([]byte(`{"state":"fast"}`))
			return
		}
		select {
		case <-r.Context().Done():
			cancelled.Add(1)
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	var calls atomic.Int32
	src := rx.Defer(func() rx.Observable[status] {
		if calls.Add(1) == 1 {
			return GetJSON[status](srv.Client(), srv.URL+"?slow=1")
		}
		return GetJSON[status](srv.Client(), srv.URL)
	})

	got, err := rx.First(testContext(t), Poll(20*time.Millisecond, src))
	mustNoError(t, err)
	if got.State != "fast" {
		t.Fatalf("expected the fast response, got %+v", got)
	}
	deadline := time.Now().Add(time.Second)
	for cancelled.Load() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("slow request was not cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDecodeJSON(t *testing.T) {
	values, err := rx.ToSlice(testContext(t), DecodeJSON[status](rx.Of([]byte(`{"count":1}`), []byte(`{"count":2}`))))
	mustNoError(t, err)
	assertEqual(t, []status{{Count: 1}, {Count: 2}}, values)

	if _, err = rx.ToSlice(testContext(t), DecodeJSON[status](rx.Of([]byte(`nope`)))); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func websocketServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func closeWith(conn *websocket.Conn, code int) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestWebSocketCompletesOnNormalClose(t *testing.T) {
	url := websocketServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"count":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"count":2}`))
		closeWith(conn, websocket.CloseNormalClosure)
	})

	values, err := rx.ToSlice(testContext(t), DecodeJSON[status](WebSocket(nil, url, nil)))
	mustNoError(t, err)
	assertEqual(t, []status{{Count: 1}, {Count: 2}}, values)
}

func TestWebSocketFailsOnAbnormalClose(t *testing.T) {
	url := websocketServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		closeWith(conn, websocket.CloseInternalServerErr)
	})

	values, err := rx.ToSlice(testContext(t), WebSocket(nil, url, nil))
	if !websocket.IsCloseError(err, websocket.CloseInternalServerErr) {
		t.Fatalf("expected an internal server close error, got %v", err)
	}
	assertEqual(t, [][]byte{[]byte("hello")}, values)
}

func TestWebSocketDisposeClosesConnection(t *testing.T) {
	closed := make(chan struct{})
	url := websocketServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("first"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	})

	got, err := rx.First(testContext(t), WebSocket(nil, url, nil))
	mustNoError(t, err)
	assertEqual(t, []byte("first"), got)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not observe the close")
	}
}

func TestWebSocketDialError(t *testing.T) {
	_, err := rx.First(testContext(t), WebSocket(nil, "ws://127.0.0.1:1/none", nil))
	if err == nil || errors.Is(err, rx.ErrEmpty) {
		t.Fatalf("expected a dial error, got %v", err)
	}
}
