package rxnet

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/rx"
)

const closeGracePeriod = time.Second

// WebSocket dials url for every subscription and emits the payload of each
// text or binary message. The stream completes when the peer closes the
// socket normally and fails on any other read error. Disposing the
// subscription sends a close frame and closes the connection. A nil dialer
// uses websocket.DefaultDialer.
func WebSocket(dialer *websocket.Dialer, url string, header http.Header) rx.Observable[[]byte] {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return rx.Func[[]byte](func(ctx context.Context, next func([]byte) error) error {
		logger := logging.FromContext(ctx).With(zap.String("url", url))
		conn, resp, err := dialer.DialContext(ctx, url, header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return err
		}
		logger.Debug("rxnet: websocket connected")

		var once sync.Once
		closeConn := func(code int) {
			once.Do(func() {
				deadline := time.Now().Add(closeGracePeriod)
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
				_ = conn.Close()
			})
		}
		stop := context.AfterFunc(ctx, func() { closeConn(websocket.CloseNormalClosure) })
		defer stop()
		defer closeConn(websocket.CloseNormalClosure)

		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("rxnet: websocket closed by peer")
					return nil
				}
				return err
			}
			if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
				continue
			}
			if err := next(payload); err != nil {
				return err
			}
		}
	})
}
