package regionservice

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Разрешаем подключения с любого источника (в production следует ограничить)
		return true
	},
}

// clientMessage — сообщение от клиента. Клиенты сообщают только о начале и
// конце просмотра региона; это порождает viewed/unviewed события поведений.
type clientMessage struct {
	Action   string `json:"action"`
	RegionID string `json:"region"`
	Viewed   bool   `json:"viewed"`
}

type WebSocketServer struct {
	clients  map[*websocket.Conn]bool
	mutex    sync.Mutex
	onViewed func(regionID string, viewed bool)
}

func NewWebSocketServer(onViewed func(regionID string, viewed bool)) *WebSocketServer {
	return &WebSocketServer{
		clients:  make(map[*websocket.Conn]bool),
		onViewed: onViewed,
	}
}

func (w *WebSocketServer) HandleWebSocket(wr http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(wr, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	w.mutex.Lock()
	w.clients[conn] = true
	w.mutex.Unlock()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Client disconnected: %v", err)
			w.mutex.Lock()
			delete(w.clients, conn)
			w.mutex.Unlock()
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			continue
		}
		if msg.Action == "viewRegion" && w.onViewed != nil {
			w.onViewed(msg.RegionID, msg.Viewed)
		}
	}
}

func (w *WebSocketServer) BroadcastMessage(message []byte) {
	// Отправляем сообщение всем подключенным клиентам с блокировкой
	w.mutex.Lock()
	defer w.mutex.Unlock()

	for client := range w.clients {
		err := client.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			log.Printf("Failed to send message to client: %v", err)
			client.Close()
			delete(w.clients, client)
		}
	}
}

// BroadcastLoop ретранслирует события клиентам до закрытия done. Канал
// broadcast никогда не закрывается: издатели могут писать в него и во время
// остановки сервиса.
func (w *WebSocketServer) BroadcastLoop(broadcast <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case message := <-broadcast:
			w.BroadcastMessage(message)
		case <-done:
			return
		}
	}
}
