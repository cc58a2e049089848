package contentfs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DiskInfo describes one registered disk.
type DiskInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Source      string `json:"source,omitempty"`
	Permissions string `json:"permissions"`
}

// DiskTable maps disk names to the Provider that serves them.
// It is safe for concurrent use.
type DiskTable struct {
	mu    sync.RWMutex
	disks map[string]Provider
}

// NewDiskTable creates an empty disk table.
func NewDiskTable() *DiskTable {
	return &DiskTable{disks: make(map[string]Provider)}
}

// Add registers p under name.
func (t *DiskTable) Add(name string, p Provider) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty disk name", ErrInvalidConfig)
	}
	if p == nil {
		return fmt.Errorf("%w: disk %s has no provider", ErrInvalidConfig, name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.disks[name]; ok {
		return fmt.Errorf("%w: %s", ErrDiskExists, name)
	}
	t.disks[name] = p
	return nil
}

// Remove unregisters the disk called name.
func (t *DiskTable) Remove(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.disks[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDisk, name)
	}
	delete(t.disks, name)
	return nil
}

// Disk returns the provider registered under name.
func (t *DiskTable) Disk(name string) (Provider, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.disks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDisk, name)
	}
	return p, nil
}

// Names returns every registered disk name in sorted order.
func (t *DiskTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.disks))
	for name := range t.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllInfo returns detailed information about all disks, sorted by name.
func (t *DiskTable) AllInfo() []DiskInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	infos := make([]DiskInfo, 0, len(t.disks))
	for name, p := range t.disks {
		info := DiskInfo{Name: name, Kind: fmt.Sprintf("%T", p)}
		if dp, ok := p.(DiskInfoProvider); ok {
			info.Kind, info.Source = dp.DiskInfo()
		}
		info.Permissions = permString(p)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// permString renders the disk capabilities as r, w (Put) and d (Mkdir).
func permString(p Provider) string {
	s := [3]byte{'r', '-', '-'}
	if implementsWritable(p) {
		s[1] = 'w'
	}
	if implementsMutable(p) {
		s[2] = 'd'
	}
	return string(s[:])
}

func implementsWritable(p Provider) bool {
	_, ok := p.(Writable)
	return ok
}

func implementsMutable(p Provider) bool {
	_, ok := p.(Mutable)
	return ok
}
