package hub

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

const clientBuffer = 16

// Handler serves the SockJS stream under prefix. Sessions get events once
// they send a subscribe message.
func (h *Hub) Handler(prefix string) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &Client{ID: uuid.NewString(), Send: make(chan []byte, clientBuffer)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.Unsubscribe(client)
				continue
			}
			sub, ok := parsed.Subscription()
			if !ok {
				_ = session.Close(4004, "unknown branch")
				return
			}
			h.UpdateSubscription(client, sub)
		}
	})
}
