package monitoring

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// statsHub pushes statistics summaries to all the connected websocket
// clients.
type statsHub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte

	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

func newStatsHub() *statsHub {
	hub := &statsHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, 16),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	go hub.run()

	return hub
}

func (h *statsHub) run() {
	defer close(h.exited)

	for {
		select {
		case <-h.done:
			for conn := range h.clients {
				delete(h.clients, conn)
				conn.Close()
			}

			return
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.remove:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case msg := <-h.broadcast:
			for conn := range h.clients {
				err := conn.WriteMessage(websocket.TextMessage, msg)
				if err != nil {
					log.Printf("monitor: dropping stats client: %v", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// handle upgrades the connection, sends the first message and registers the
// client. Clients only listen, so incoming messages are discarded.
func (h *statsHub) handle(
	w http.ResponseWriter,
	r *http.Request,
	first []byte,
) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: websocket upgrade failed: %v", err)
		return
	}

	if first != nil {
		err = conn.WriteMessage(websocket.TextMessage, first)
		if err != nil {
			conn.Close()
			return
		}
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.remove <- conn:
			case <-h.done:
			}
		}()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("monitor: websocket error: %v", err)
				}

				return
			}
		}
	}()
}

// send queues msg for all the clients. The message is dropped if the hub is
// behind or stopped.
func (h *statsHub) send(msg []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.broadcast <- msg:
		return true
	default:
		return false
	}
}

// stop disconnects all the clients and ends the hub goroutine. It can be
// called more than once.
func (h *statsHub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.exited
}
