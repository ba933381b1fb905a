package api

import (
	"log"
	"net/http"
	"time"

	"dashboard/domain"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscribe streams every refreshed snapshot of (address, block) over a
// websocket until the client goes away.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	address, err := domain.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	block, err := domain.ParseBlockReference(r.URL.Query().Get("block"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("🟡 websocket upgrade for %v - %v\n", address, err.Error())
		return
	}
	defer conn.Close()

	updates, cancel := s.dashboard.Subscribe(address, block)
	defer cancel()

	// The read loop only exists to notice the client closing.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(newSnapshotDTO(snapshot)); err != nil {
				log.Printf("🟡 writing snapshot to %v - %v\n", address, err.Error())
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
