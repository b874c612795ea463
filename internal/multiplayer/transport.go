package multiplayer

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"gridcore/pkg/logger"
	"gridcore/pkg/operation"
)

// frame is the wire shape of §6's "(transaction_id, sequence_num?,
// operations)" message, used both for client→server sends and the
// server's broadcast of accepted transactions.
type frame struct {
	TransactionID string                `json:"transaction_id"`
	SequenceNum   *uint64               `json:"sequence_num,omitempty"`
	Operations    []operation.Operation `json:"operations"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub upgrades incoming HTTP connections to websockets, feeds every inbound
// frame through a Reconciler, and broadcasts the resulting sequence-numbered
// frame to every connected client, the sender included. It owns no grid
// state directly —
// that lives behind the Reconciler's Controller.
type Hub struct {
	r *Reconciler

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	nextSeq uint64
}

func NewHub(r *Reconciler) *Hub {
	return &Hub{r: r, clients: make(map[*websocket.Conn]bool)}
}

// ServeHTTP upgrades the connection and reads frames until the client
// disconnects, matching the teacher's one-goroutine-per-connection style.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.MultiplayerError("websocket upgrade failed: " + err.Error())
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			logger.MultiplayerWarn("discarding malformed frame: " + err.Error())
			continue
		}
		h.handleFrame(f)
	}
}

func (h *Hub) handleFrame(f frame) {
	h.mu.Lock()
	seq := h.nextSeq + 1
	h.mu.Unlock()

	in := Incoming{TransactionID: f.TransactionID, SequenceNum: &seq, Operations: f.Operations}
	if _, err := h.r.Receive(in); err != nil {
		logger.MultiplayerError("rejected transaction " + f.TransactionID + ": " + err.Error())
		return
	}

	h.mu.Lock()
	h.nextSeq = seq
	h.mu.Unlock()

	h.broadcast(frame{TransactionID: f.TransactionID, SequenceNum: &seq, Operations: f.Operations})
}

func (h *Hub) broadcast(f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(f); err != nil {
			logger.MultiplayerWarn("dropping client after write failure: " + err.Error())
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Client is the dial-out half: a connection to a Hub that feeds every
// inbound broadcast frame through a local Reconciler.
type Client struct {
	conn *websocket.Conn
	r    *Reconciler
}

func Dial(url string, r *Reconciler) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: r}, nil
}

// Send transmits a locally originated unsaved transaction to the server.
func (c *Client) Send(transactionID string, ops []operation.Operation) error {
	return c.conn.WriteJSON(frame{TransactionID: transactionID, Operations: ops})
}

// Listen blocks, reconciling every frame the server broadcasts, until the
// connection closes or ctx-style cancellation is handled by the caller
// closing the underlying connection.
func (c *Client) Listen() error {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			logger.MultiplayerWarn("discarding malformed frame: " + err.Error())
			continue
		}
		if _, err := c.r.Receive(Incoming{TransactionID: f.TransactionID, SequenceNum: f.SequenceNum, Operations: f.Operations}); err != nil {
			logger.MultiplayerError("reconcile failed for " + f.TransactionID + ": " + err.Error())
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
