// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spectrum/internal/display"
	"spectrum/internal/log"
	"spectrum/internal/render"
)

const writeWait = 50 * time.Millisecond

// WebSocketDisplay mirrors the panel to browsers. It serves a canvas viewer
// at "/" and pushes every blitted frame as a binary packet to clients
// connected on "/ws".
type WebSocketDisplay struct {
	addr     string
	upgrader websocket.Upgrader
	server   *http.Server

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}

	orientation render.Orientation
	rotated     *render.FrameBuffer
	packet      []byte
	now         func() time.Time
}

// NewWebSocketDisplay returns a sink that listens on addr once configured.
// An empty addr disables the listener; Handler can still be mounted
// elsewhere.
func NewWebSocketDisplay(addr string) *WebSocketDisplay {
	return &WebSocketDisplay{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 2048,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local viewer; any origin.
			},
		},
		clients: make(map[*websocket.Conn]struct{}),
		now:     time.Now,
	}
}

// Handler returns the viewer and socket routes.
func (d *WebSocketDisplay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", d.handleWebSocket)
	mux.HandleFunc("/", d.handleViewer)
	return mux
}

func (d *WebSocketDisplay) Configure(res render.Resolution, o render.Orientation) error {
	if err := res.Validate(); err != nil {
		return err
	}
	d.orientation = o
	d.rotated = render.NewFrameBuffer(res)
	d.packet = make([]byte, 0, PacketSize(res))

	if d.addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return err
	}
	d.server = &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("WebSocketDisplay: viewer at http://%s/", ln.Addr())
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocketDisplay: server error: %v", err)
		}
	}()
	return nil
}

func (d *WebSocketDisplay) handleViewer(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(viewerPage))
}

func (d *WebSocketDisplay) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketDisplay: upgrade error: %v", err)
		return
	}

	d.clientsMu.Lock()
	d.clients[conn] = struct{}{}
	n := len(d.clients)
	d.clientsMu.Unlock()
	log.Infof("WebSocketDisplay: client connected from %s, total: %d", conn.RemoteAddr(), n)

	// Viewers never send; the read loop only detects disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				d.drop(conn)
				return
			}
		}
	}()
}

func (d *WebSocketDisplay) drop(conn *websocket.Conn) {
	d.clientsMu.Lock()
	_, ok := d.clients[conn]
	delete(d.clients, conn)
	n := len(d.clients)
	d.clientsMu.Unlock()
	if ok {
		conn.Close()
		log.Infof("WebSocketDisplay: client disconnected, total: %d", n)
	}
}

// Clients returns the number of connected viewers.
func (d *WebSocketDisplay) Clients() int {
	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	return len(d.clients)
}

// Blit sends fb to every client. Clients that cannot keep up within the
// write deadline are disconnected.
func (d *WebSocketDisplay) Blit(fb *render.FrameBuffer) error {
	render.RotateInto(d.rotated, fb, d.orientation)
	d.packet = AppendFrame(d.packet[:0], d.rotated, d.now())

	d.clientsMu.Lock()
	var failed []*websocket.Conn
	for conn := range d.clients {
		_ = conn.SetWriteDeadline(d.now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, d.packet); err != nil {
			log.Warnf("WebSocketDisplay: error sending to %s: %v", conn.RemoteAddr(), err)
			failed = append(failed, conn)
		}
	}
	d.clientsMu.Unlock()

	for _, conn := range failed {
		d.drop(conn)
	}
	return nil
}

// Close disconnects all clients and shuts the server down.
func (d *WebSocketDisplay) Close() error {
	log.Debugf("WebSocketDisplay: closing")

	d.clientsMu.Lock()
	for conn := range d.clients {
		conn.Close()
	}
	clear(d.clients)
	d.clientsMu.Unlock()

	if d.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return d.server.Shutdown(ctx)
}

var _ display.Display = (*WebSocketDisplay)(nil)

const viewerPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>spectrum</title>
<style>
body { background: #111; color: #8cf; font: 13px monospace; margin: 2em; }
canvas { image-rendering: pixelated; background: #000; border: 1px solid #333; }
</style>
</head>
<body>
<canvas id="panel" width="128" height="64"></canvas>
<div id="status">connecting</div>
<script>
const scale = 6;
const canvas = document.getElementById("panel");
const status = document.getElementById("status");
const ctx = canvas.getContext("2d");

function draw(buf) {
  const v = new DataView(buf);
  const seq = v.getUint32(0);
  const w = v.getUint16(12), h = v.getUint16(14);
  if (canvas.width !== w * scale) { canvas.width = w * scale; canvas.height = h * scale; }
  ctx.fillStyle = "#000";
  ctx.fillRect(0, 0, canvas.width, canvas.height);
  ctx.fillStyle = "#8cf";
  const pages = new Uint8Array(buf, 16);
  for (let p = 0; p < h / 8; p++) {
    for (let x = 0; x < w; x++) {
      const b = pages[p * w + x];
      for (let bit = 0; bit < 8; bit++) {
        if (b & (1 << bit)) ctx.fillRect(x * scale, (p * 8 + bit) * scale, scale, scale);
      }
    }
  }
  status.textContent = "frame " + seq;
}

function connect() {
  const ws = new WebSocket("ws://" + location.host + "/ws");
  ws.binaryType = "arraybuffer";
  ws.onmessage = (e) => draw(e.data);
  ws.onopen = () => { status.textContent = "connected"; };
  ws.onclose = () => { status.textContent = "disconnected"; setTimeout(connect, 1000); };
}
connect();
</script>
</body>
</html>
`
