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
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

var fingerprintCounter atomic.Int64

// nextFingerprint hands out a globally-monotonic fingerprint, used to detect
// when another iterator has moved a shared handle's file position between
// this iterator's pulls.
func nextFingerprint() int64 {
	return fingerprintCounter.Add(1)
}

// handle owns the lazily-opened file for one resolved path, the row cache
// shared by every iterator reading it, and the live-iterator refcount that
// decides when to close. One handle may be shared by several Schema Views
// that happen to resolve to the same path, deduplicated by the registry.
type handle struct {
	mu     sync.Mutex
	path   string
	source fileSource
	f      readAtCloser

	refCount        int
	lastFingerprint int64

	cache        *RowCache
	descriptorID uuid.UUID
	openedAt     time.Time

	watcher  *fsnotify.Watcher
	watchErr chan struct{}

	lastUsed atomic.Int64
}

// readAtCloser is the minimal surface every fileSource must offer; local
// files, S3 objects and (when built with -tags=ceph) RADOS objects all
// implement it without exposing their own concerns to the scan iterator.
type readAtCloser interface {
	io.ReaderAt
	io.Closer
	Size() (int64, error)
}

func newHandle(path string, source fileSource, cacheCapacity int) *handle {
	h := &handle{path: path, source: source, cache: NewRowCache(cacheCapacity)}
	h.lastUsed.Store(time.Now().UnixNano())
	return h
}

// ensureOpen lazily opens the file, creating an empty one first if it is
// missing, matching the engine's "never writes, but an absent file becomes
// an empty one" persisted-state contract.
func (h *handle) ensureOpen() error {
	h.mu.Lock()
	if h.f != nil {
		h.mu.Unlock()
		return nil
	}
	f, err := h.source.OpenOrCreate(h.path)
	if err != nil {
		h.mu.Unlock()
		return ioError("open "+h.path, err)
	}
	h.f = f
	h.descriptorID = uuid.New()
	h.openedAt = time.Now()
	h.mu.Unlock()

	// Track/startWatch run with the lock released: eviction (on another
	// handle, or even this one once idle) re-acquires h.mu itself.
	GlobalTelemetry.Emit("handle open path=%s id=%s at=%s", h.path, h.descriptorID, h.openedAt.Format(time.RFC3339Nano))
	h.startWatch()
	GlobalHandleBudget.Track(h)
	return nil
}

// startWatch installs a best-effort fsnotify watch; failures are not fatal,
// since external-modification detection is purely additive telemetry, never
// a precondition for scanning.
func (h *handle) startWatch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	if err := w.Add(h.path); err != nil {
		w.Close()
		return
	}
	h.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					GlobalTelemetry.Warn("file %s modified externally during scan (%s)", h.path, ev.Op)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// acquire registers one more live iterator and returns its fresh fingerprint.
func (h *handle) acquire() int64 {
	h.mu.Lock()
	h.refCount++
	h.mu.Unlock()
	return nextFingerprint()
}

// release drops one live iterator; when the count reaches zero the file is
// closed and the cache cleared, per the handle lifecycle invariant.
func (h *handle) release() {
	h.mu.Lock()
	h.refCount--
	closeNow := h.refCount <= 0
	h.mu.Unlock()
	if closeNow {
		h.closeNow()
		GlobalHandleBudget.Untrack(h)
	}
}

func (h *handle) closeNow() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f != nil {
		h.f.Close()
		GlobalTelemetry.Emit("handle close path=%s id=%s", h.path, h.descriptorID)
		h.f = nil
	}
	if h.watcher != nil {
		h.watcher.Close()
		h.watcher = nil
	}
	h.cache.Invalidate()
	GlobalRegistry.forget(h.path, h)
}

// fingerprintMatches reports whether ours is the fingerprint the handle last
// recorded, i.e. that no other iterator has advanced the file since.
func (h *handle) fingerprintMatches(ours int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastFingerprint == ours
}

// adopt records ours as the handle's last-read fingerprint without
// performing any read, used when the cache backtrack search finds a usable
// starting row and the first pull can skip the seek-and-invalidate dance.
func (h *handle) adopt(ours int64) {
	h.mu.Lock()
	h.lastFingerprint = ours
	h.mu.Unlock()
}

// readRecordAt reads one delimiter-terminated record starting at offset,
// using ReaderAt so concurrent iterators never contend on a shared file
// cursor; "seeking" is purely a logical offset carried by the iterator.
func (h *handle) readRecordAt(offset int64, sep string) (record string, next int64, eof bool, err error) {
	h.mu.Lock()
	f := h.f
	h.mu.Unlock()
	if f == nil {
		return "", offset, false, ioError(h.path, os.ErrClosed)
	}
	h.lastUsed.Store(time.Now().UnixNano())

	const chunk = 4096
	var buf []byte
	pos := offset
	for {
		tmp := make([]byte, chunk)
		n, rerr := f.ReadAt(tmp, pos)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if idx := strings.Index(string(buf), sep); idx >= 0 {
			return string(buf[:idx]), offset + int64(idx) + int64(len(sep)), false, nil
		}
		if rerr == io.EOF {
			if len(buf) == 0 {
				return "", offset, true, nil
			}
			// final record with no trailing separator
			return string(buf), offset + int64(len(buf)), false, nil
		}
		if rerr != nil {
			return "", offset, false, ioError("read "+h.path, rerr)
		}
		if n == 0 {
			return "", offset, true, nil
		}
		pos += int64(n)
	}
}
