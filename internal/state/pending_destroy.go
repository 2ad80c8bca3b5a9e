package state

import (
	"sort"
	"time"
)

// PendingDestroys records when each container's destroy was observed, so a
// quick re-create under the same name can cancel it.
type PendingDestroys struct {
	entries map[string]time.Time
}

func NewPendingDestroys() *PendingDestroys {
	return &PendingDestroys{entries: make(map[string]time.Time)}
}

func (p *PendingDestroys) Mark(name string, at time.Time) {
	p.entries[name] = at
}

// Cancel removes the entry for name and reports whether one existed.
func (p *PendingDestroys) Cancel(name string) bool {
	if _, ok := p.entries[name]; !ok {
		return false
	}
	delete(p.entries, name)
	return true
}

// Expired lists, oldest first, the names marked more than ttl before now.
func (p *PendingDestroys) Expired(now time.Time, ttl time.Duration) []string {
	var names []string
	for name, at := range p.entries {
		if now.Sub(at) > ttl {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := p.entries[names[i]], p.entries[names[j]]
		if ai.Equal(aj) {
			return names[i] < names[j]
		}
		return ai.Before(aj)
	})
	return names
}

func (p *PendingDestroys) Forget(name string) {
	delete(p.entries, name)
}

func (p *PendingDestroys) Len() int {
	return len(p.entries)
}
