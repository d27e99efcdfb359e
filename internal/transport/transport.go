// Package transport delivers typed messages between the shell and whichever
// UI module is currently mounted. It is deliberately not a broadcast
// primitive: exactly one module is addressable at a time, and modules that
// miss an update self-heal by sending REQUEST_SHARED_DATA when they mount.
package transport

import (
	"encoding/json"
	"sync"

	"pv-analysis-be/internal/message"
	"pv-analysis-be/internal/pkg/logger"
)

type Transport struct {
	// Connected module clients: module name -> connection. A module that
	// reconnects replaces its previous connection.
	clients map[string]*Client

	// active is the module currently mounted in the shell, i.e. the only
	// legal delivery target. Empty means nothing is mounted.
	active string

	// origins is the static module -> origin table from configuration.
	origins map[string]string

	register   chan *Client
	unregister chan *Client

	// inbox feeds origin-checked inbound envelopes to the coordinator.
	inbox chan message.Envelope

	mu     sync.RWMutex
	logger logger.ILogger
}

func NewTransport(origins map[string]string, log logger.ILogger) *Transport {
	return &Transport{
		clients:    make(map[string]*Client),
		origins:    origins,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan message.Envelope, 64),
		logger:     log,
	}
}

// Inbox is the stream of validated inbound messages, consumed by the state
// store's run loop. Per-sender arrival order is preserved.
func (t *Transport) Inbox() <-chan message.Envelope {
	return t.inbox
}

func (t *Transport) Run() {
	for {
		select {
		case client := <-t.register:
			t.mu.Lock()
			if old, ok := t.clients[client.Module]; ok && old != client {
				close(old.Send)
			}
			t.clients[client.Module] = client
			// Mounting a module makes it the active target; anything sent to
			// the previous target from here on reaches only this module.
			t.active = client.Module
			t.mu.Unlock()
			t.logger.Info("Transport", "Module attached", map[string]interface{}{"module": client.Module, "origin": client.Origin})

		case client := <-t.unregister:
			t.mu.Lock()
			if current, ok := t.clients[client.Module]; ok && current == client {
				delete(t.clients, client.Module)
				close(client.Send)
				t.logger.Info("Transport", "Module detached", map[string]interface{}{"module": client.Module})
			}
			t.mu.Unlock()
		}
	}
}

// SetActive switches the delivery target without requiring a reconnect
// (NAVIGATE). Unknown module names are a configuration mismatch and are
// ignored with a warning.
func (t *Transport) SetActive(module string) {
	if _, ok := t.origins[module]; !ok {
		t.logger.Warn("Transport", "NAVIGATE to unconfigured module ignored", map[string]interface{}{"module": module})
		return
	}
	t.mu.Lock()
	t.active = module
	t.mu.Unlock()
}

// ActiveModule returns the current delivery target name, empty when none.
func (t *Transport) ActiveModule() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// SendToActive delivers one envelope to the currently mounted module. A
// missing target is a silent no-op. The expected origin for the target is
// always resolved from configuration before sending; a module with no
// configured origin is a configuration error and nothing is sent. There is
// no wildcard fallback.
//
// The read lock is held across the channel send: Run closes a replaced
// client's Send under the write lock, so holding the read lock here excludes
// a concurrent close and the send cannot hit a closed channel.
func (t *Transport) SendToActive(env message.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		t.logger.Error("Transport", "Failed to marshal outbound message", map[string]interface{}{"type": env.Type, "error": err.Error()})
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	name := t.active
	client := t.clients[name]
	expected, configured := t.origins[name]

	if name == "" || client == nil {
		return
	}
	if !configured {
		t.logger.Error("Transport", "Active module has no configured origin, refusing to send", map[string]interface{}{"module": name})
		return
	}
	if client.Origin != expected {
		t.logger.Error("Transport", "Active client origin does not match configuration, refusing to send", map[string]interface{}{
			"module": name, "origin": client.Origin, "expected": expected,
		})
		return
	}

	select {
	case client.Send <- data:
	default:
		t.logger.Warn("Transport", "Client send buffer full, dropping connection", map[string]interface{}{"module": name})
		go func() { t.unregister <- client }()
	}
}

// receive handles one inbound envelope from a connected module. Envelopes
// whose sender origin is not in the known origin set are discarded without
// error; this is a security boundary, not a correctness one.
func (t *Transport) receive(c *Client, env message.Envelope) {
	expected, ok := t.origins[c.Module]
	if !ok || c.Origin != expected {
		t.logger.Debug("Transport", "Dropping message from unknown origin", map[string]interface{}{
			"module": c.Module, "origin": c.Origin, "type": env.Type,
		})
		return
	}
	t.inbox <- env
}
