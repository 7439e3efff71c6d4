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
	nlrm "github.com/launix-de/NonLockingReadMap"
	"golang.org/x/sync/singleflight"
)

// registryEntry adapts *handle to the NonLockingReadMap's KeyGetter contract.
type registryEntry struct {
	path string
	h    *handle
}

func (e registryEntry) GetKey() string    { return e.path }
func (e registryEntry) ComputeSize() uint { return uint(len(e.path)) + 64 }

// handleRegistry is the process-wide map from a resolved path to the one
// handle that owns it, so two Schema Views naming the same underlying file
// share a single open file descriptor, cache, and live-iterator count.
// Reads are lock-free (NonLockingReadMap); concurrent first-opens of the
// same path are deduplicated with singleflight so only one handle is ever
// constructed for a given path.
type handleRegistry struct {
	m  nlrm.NonLockingReadMap[registryEntry, string]
	sf singleflight.Group
}

func newHandleRegistry() *handleRegistry {
	return &handleRegistry{m: nlrm.New[registryEntry, string]()}
}

// getOrCreate returns the shared handle for path, constructing one with
// cacheCapacity if none exists yet.
func (r *handleRegistry) getOrCreate(path string, cacheCapacity int) (*handle, error) {
	if e := r.m.Get(path); e != nil {
		return e.h, nil
	}
	v, err, _ := r.sf.Do(path, func() (interface{}, error) {
		if e := r.m.Get(path); e != nil {
			return e.h, nil
		}
		h := newHandle(path, sourceFor(path), cacheCapacity)
		r.m.Set(&registryEntry{path: path, h: h})
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*handle), nil
}

// forget removes the registry entry for path, but only if it still points
// at h — a handle racing to close while a fresher one has already replaced
// it in the registry must not evict the newer entry.
func (r *handleRegistry) forget(path string, h *handle) {
	if e := r.m.Get(path); e != nil && e.h == h {
		r.m.Remove(path)
	}
}
