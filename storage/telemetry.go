/*
Copyright (C) 2026  Flatscan Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Telemetry is the "monitor" sink described by the external interfaces: a
// human-readable, not machine-parsed, text feed gated by a process-wide flag.
// Wording is not a contract; callers should not parse it.
type Telemetry struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool

	wsMu      sync.Mutex
	wsClients map[*websocket.Conn]struct{}
	upgrader  websocket.Upgrader
}

// NewTelemetry creates a sink writing to out, disabled until Enable is called.
func NewTelemetry(out io.Writer) *Telemetry {
	return &Telemetry{
		out:       out,
		wsClients: make(map[*websocket.Conn]struct{}),
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

func (t *Telemetry) Enable()  { t.mu.Lock(); t.enabled = true; t.mu.Unlock() }
func (t *Telemetry) Disable() { t.mu.Lock(); t.enabled = false; t.mu.Unlock() }

// Emit writes a formatted line to the sink and broadcasts it to any
// connected /monitor websocket clients, but only when monitoring is enabled.
func (t *Telemetry) Emit(format string, args ...any) {
	t.mu.Lock()
	enabled := t.enabled
	t.mu.Unlock()
	if !enabled {
		return
	}
	line := fmt.Sprintf(format, args...)
	t.mu.Lock()
	fmt.Fprintln(t.out, line)
	t.mu.Unlock()
	t.broadcast(line)
}

// Warn emits a non-fatal DegeneratePredicate-class warning the same way.
func (t *Telemetry) Warn(format string, args ...any) {
	t.Emit("WARNING "+format, args...)
}

func (t *Telemetry) Flush() {
	// fmt.Fprintln above is unbuffered; Flush exists so the onexit hook has
	// a stable place to grow into if the sink ever gains buffering.
}

func (t *Telemetry) broadcast(line string) {
	t.wsMu.Lock()
	defer t.wsMu.Unlock()
	for c := range t.wsClients {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			c.Close()
			delete(t.wsClients, c)
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket and streams telemetry
// lines to it until the client disconnects, generalizing the source's
// dashboard-over-websocket shape to this engine's own event feed.
func (t *Telemetry) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	t.wsMu.Lock()
	t.wsClients[conn] = struct{}{}
	t.wsMu.Unlock()
}
