package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Hub управляет всеми WebSocket клиентами локальных чатов.
// Подписки группируются по pin code района: сообщение комнаты уходит всем
// подключённым жителям этого района.
type Hub struct {
	mu         sync.RWMutex
	channels   map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	ctx        context.Context
}

type message struct {
	pinCode string
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		channels:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		ctx:        ctx,
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.pinCode, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastToChannel рассылает событие всем подписчикам pin code.
// Сообщение следует контракту WebSocket API: "type" — имя события,
// "data" — полезная нагрузка.
func (h *Hub) BroadcastToChannel(pinCode string, event string, data any) error {
	payload := map[string]any{
		"type": event,
		"data": data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{pinCode: pinCode, payload: raw}:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.channels[client.pinCode]
	if !ok {
		set = make(map[*Client]struct{})
		h.channels[client.pinCode] = set
	}
	set[client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.channels[client.pinCode]
	if !ok {
		return
	}

	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.channels, client.pinCode)
	}
}

func (h *Hub) send(pinCode string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.channels[pinCode] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент не должен тормозить рассылку всей комнаты.
		}
	}
}
