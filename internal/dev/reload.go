package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ReloadMessageType represents the type of reload message.
type ReloadMessageType string

const (
	ReloadTypeFull  ReloadMessageType = "reload"
	ReloadTypeCSS   ReloadMessageType = "css"
	ReloadTypeError ReloadMessageType = "error"
	ReloadTypeClear ReloadMessageType = "clear"
)

// ReloadMessage is sent to browsers via WebSocket.
type ReloadMessage struct {
	Type  ReloadMessageType `json:"type"`
	Error string            `json:"error,omitempty"`
	File  string            `json:"file,omitempty"`
}

// ReloadServer manages WebSocket connections for hot reload.
type ReloadServer struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// lastError is replayed to clients that connect while a build is broken.
	lastError string
}

// NewReloadServer creates a new reload server.
func NewReloadServer(logger *slog.Logger) *ReloadServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadServer{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dev only
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and holds it until the client leaves.
func (r *ReloadServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Debug("reload upgrade failed", "err", err)
		return
	}

	r.mu.Lock()
	r.clients[conn] = true
	pending := r.lastError
	r.mu.Unlock()

	if pending != "" {
		r.send(conn, ReloadMessage{Type: ReloadTypeError, Error: pending})
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	r.mu.Lock()
	delete(r.clients, conn)
	r.mu.Unlock()
	conn.Close()
}

// NotifyReload sends a full page reload message to all clients.
func (r *ReloadServer) NotifyReload() {
	r.broadcast(ReloadMessage{Type: ReloadTypeFull})
}

// NotifyCSS sends a CSS-only reload message to all clients.
func (r *ReloadServer) NotifyCSS(file string) {
	r.broadcast(ReloadMessage{Type: ReloadTypeCSS, File: file})
}

// NotifyError shows the error overlay on all clients.
func (r *ReloadServer) NotifyError(errMsg string) {
	r.mu.Lock()
	r.lastError = errMsg
	r.mu.Unlock()
	r.broadcast(ReloadMessage{Type: ReloadTypeError, Error: errMsg})
}

// ClearError clears the error overlay on all clients.
func (r *ReloadServer) ClearError() {
	r.mu.Lock()
	had := r.lastError != ""
	r.lastError = ""
	r.mu.Unlock()
	if had {
		r.broadcast(ReloadMessage{Type: ReloadTypeClear})
	}
}

func (r *ReloadServer) broadcast(msg ReloadMessage) {
	r.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.mu.RUnlock()

	for _, client := range clients {
		r.send(client, msg)
	}
}

func (r *ReloadServer) send(client *websocket.Conn, msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
		r.mu.Lock()
		delete(r.clients, client)
		r.mu.Unlock()
		client.Close()
	}
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes all client connections.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.clients {
		client.Close()
		delete(r.clients, client)
	}
}

// ReloadScript is injected into every page in dev mode.
const ReloadScript = `<script>
(function() {
    var delay = 1000;

    function connect() {
        var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(proto + '//' + location.host + '/_squid/reload');

        ws.onopen = function() {
            delay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            switch (msg.type) {
                case 'reload':
                    location.reload();
                    break;
                case 'css':
                    document.querySelectorAll('link[rel="stylesheet"]').forEach(function(link) {
                        var url = new URL(link.href);
                        url.searchParams.set('_reload', Date.now());
                        link.href = url.toString();
                    });
                    break;
                case 'error':
                    showError(msg.error);
                    break;
                case 'clear':
                    clearError();
                    break;
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                delay = Math.min(delay * 2, 30000);
                connect();
            }, delay);
        };
    }

    function showError(text) {
        clearError();
        var overlay = document.createElement('div');
        overlay.id = 'squid-error-overlay';
        overlay.style.cssText = 'position:fixed;inset:0;background:rgba(0,0,0,0.9);color:#fff;font:14px monospace;padding:20px;overflow:auto;z-index:999999;';
        var pre = document.createElement('pre');
        pre.style.cssText = 'white-space:pre-wrap;max-width:800px;margin:0 auto;';
        pre.textContent = text;
        overlay.appendChild(pre);
        document.body.appendChild(overlay);
    }

    function clearError() {
        var overlay = document.getElementById('squid-error-overlay');
        if (overlay) {
            overlay.remove();
        }
    }

    connect();
})();
</script>`
