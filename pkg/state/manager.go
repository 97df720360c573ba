// Package state persists parameter targets for host session save/restore.
// The sample asset itself is a build-time resource and is never serialized.
package state

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/justyntemme/oneshot/pkg/param"
)

var magic = [6]byte{'O', 'N', 'E', 'S', 'H', 'T'}

const version uint32 = 1

// Manager serializes the normalized parameter targets of a registry. Only
// targets are saved; smoothed values are transient and rebuild identically
// from the restored targets.
type Manager struct {
	registry *param.Registry
}

// NewManager creates a state manager over a parameter registry.
func NewManager(registry *param.Registry) *Manager {
	return &Manager{registry: registry}
}

// Save writes the session state: magic, version, and (id, target) pairs in
// declaration order, little-endian.
func (m *Manager) Save(w io.Writer) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, version); err != nil {
		return err
	}

	params := m.registry.All()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(params))); err != nil {
		return err
	}
	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.GetValue()); err != nil {
			return err
		}
	}
	return nil
}

// Load restores parameter targets saved by Save. Parameters missing from
// the stream keep their current targets; IDs unknown to the registry are
// skipped, so sessions survive parameter additions and removals.
func (m *Manager) Load(r io.Reader) error {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("reading state header: %w", err)
	}
	if header != magic {
		return fmt.Errorf("not a oneshot state stream")
	}

	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return fmt.Errorf("reading state version: %w", err)
	}
	if v == 0 || v > version {
		return fmt.Errorf("unsupported state version %d", v)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("reading parameter count: %w", err)
	}
	for i := uint32(0); i < count; i++ {
		var id uint32
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return fmt.Errorf("reading parameter %d: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return fmt.Errorf("reading parameter %d value: %w", i, err)
		}
		if p := m.registry.Get(id); p != nil {
			p.SetValue(value)
		}
	}
	return nil
}
