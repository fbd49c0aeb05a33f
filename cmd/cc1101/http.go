// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/tve/subghz/cc1101"
)

// router returns the HTTP API of the gateway.
func (g *gateway) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stats", g.statsHandle).Methods("GET")
	r.HandleFunc("/params", g.paramsHandle).Methods("GET")
	r.HandleFunc("/tx", g.txHandle).Methods("POST")
	r.HandleFunc("/ws", g.hub.handle).Methods("GET")
	return r
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type errorResp struct {
	Error string `json:"error"`
}

func (g *gateway) statsHandle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.stats())
}

type paramsResp struct {
	Config    cc1101.Config `json:"config"`
	Params    cc1101.Params `json:"params"`
	Summary   string        `json:"summary"`
	Registers [][2]byte     `json:"registers"` // address, value
}

func (g *gateway) paramsHandle(w http.ResponseWriter, r *http.Request) {
	c, p := g.radio.Config()
	regs, _, err := cc1101.Registers(c)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{err.Error()})
		return
	}
	resp := paramsResp{Config: c, Params: p, Summary: p.String()}
	for i := 0; i < len(regs); i += 2 {
		resp.Registers = append(resp.Registers, [2]byte{regs[i], regs[i+1]})
	}
	writeJSON(w, http.StatusOK, resp)
}

// txHandle queues the packet in a JSON encoded TxMessage, the packet being base64.
func (g *gateway) txHandle(w http.ResponseWriter, r *http.Request) {
	var msg TxMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{err.Error()})
		return
	}
	switch err := g.enqueue(msg.Packet); {
	case errors.Is(err, errQueueFull):
		writeJSON(w, http.StatusServiceUnavailable, errorResp{err.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorResp{err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, g.stats())
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// hub fans received packets out to the connected websockets.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan interface{}
	closed  bool
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan interface{})}
}

func (h *hub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	out := make(chan interface{}, 16)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = out
	h.mu.Unlock()

	// Reader: nothing is expected from the client but reading processes control frames and
	// notices when it goes away.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()

	for msg := range out {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("websocket %s: %s, disconnecting", conn.RemoteAddr(), err)
			h.remove(conn)
			break
		}
	}
	conn.Close()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.clients[conn]; ok {
		close(out)
		delete(h.clients, conn)
	}
}

// broadcast sends msg to all clients, dropping it for those that are behind.
func (h *hub) broadcast(msg interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, out := range h.clients {
		select {
		case out <- msg:
		default:
			log.Printf("websocket %s: behind, dropping packet", conn.RemoteAddr())
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, out := range h.clients {
		close(out)
		delete(h.clients, conn)
	}
}
