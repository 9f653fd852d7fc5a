// Package layers implements the optional "layered MCP" catalog gating
// described in spec §4.7: a configurable subset of the tool catalog can be
// active at a time, with meta-tools to list/activate/deactivate layers at
// runtime. Per the layer-gate-wins precedence decided in SPEC_FULL.md §9,
// a deactivated layer's tools are fully unregistered — invisible to
// tools/list and unresolvable by tools/call — not merely warned about.
package layers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/emergent-company/memoryd/internal/mcp"
)

// CoreLayer is always active and cannot be deactivated: it carries the
// tools a memoryd instance is useless without (the memory and task CRUD
// catalog).
const CoreLayer = "core"

// Manager owns the layer->tools mapping and mutates registry membership as
// layers activate/deactivate.
type Manager struct {
	registry *mcp.Registry
	maxTools int

	mu     sync.Mutex
	layers map[string][]mcp.Tool
	order  []string
	active map[string]bool
}

// NewManager creates a Manager bound to registry. maxTools <= 0 means no
// cap (spec §6.2 mcp.max_tools, default unset).
func NewManager(registry *mcp.Registry, maxTools int) *Manager {
	return &Manager{
		registry: registry,
		maxTools: maxTools,
		layers:   make(map[string][]mcp.Tool),
		active:   make(map[string]bool),
	}
}

// Define registers a named layer's tool set without activating it. Call
// Activate (or include the name in defaultLayers passed to Bootstrap) to
// make its tools visible.
func (m *Manager) Define(name string, tools []mcp.Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.layers[name]; !exists {
		m.order = append(m.order, name)
	}
	m.layers[name] = tools
}

// Bootstrap activates CoreLayer plus every name in defaultLayers (spec
// §6.2 mcp.default_layers), in order, ignoring unknown names.
func (m *Manager) Bootstrap(defaultLayers []string) error {
	if err := m.Activate(CoreLayer); err != nil {
		return err
	}
	for _, name := range defaultLayers {
		if name == CoreLayer {
			continue
		}
		m.mu.Lock()
		_, known := m.layers[name]
		m.mu.Unlock()
		if !known {
			continue
		}
		if err := m.Activate(name); err != nil {
			return err
		}
	}
	return nil
}

// Activate registers every tool in layer name. A no-op if already active.
func (m *Manager) Activate(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tools, ok := m.layers[name]
	if !ok {
		return fmt.Errorf("unknown layer %q", name)
	}
	if m.active[name] {
		return nil
	}

	if m.maxTools > 0 {
		projected := m.countActiveLocked() + len(tools)
		if projected > m.maxTools {
			return fmt.Errorf("activating layer %q would register %d tools, exceeding mcp.max_tools=%d", name, projected, m.maxTools)
		}
	}

	for _, t := range tools {
		m.registry.Register(t)
	}
	m.active[name] = true
	return nil
}

// Deactivate unregisters every tool in layer name. Refuses for CoreLayer.
func (m *Manager) Deactivate(name string) error {
	if name == CoreLayer {
		return fmt.Errorf("layer %q cannot be deactivated", CoreLayer)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tools, ok := m.layers[name]
	if !ok {
		return fmt.Errorf("unknown layer %q", name)
	}
	if !m.active[name] {
		return nil
	}
	for _, t := range tools {
		m.registry.Unregister(t.Name())
	}
	m.active[name] = false
	return nil
}

// Available returns every defined layer name in definition order.
func (m *Manager) Available() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// ActiveLayers returns currently active layer names, sorted.
func (m *Manager) ActiveLayers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for name, on := range m.active {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manager) countActiveLocked() int {
	total := 0
	for name, on := range m.active {
		if on {
			total += len(m.layers[name])
		}
	}
	return total
}
