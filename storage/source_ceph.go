//go:build ceph

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
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephConfig names the cluster, user and config file every
// "ceph://pool/object" path in this process resolves against; the pool is
// taken from the path itself.
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
}

var defaultCephSource = &cephSource{}

// cephSource implements fileSource for RADOS objects, generalizing the
// source engine's CephStorage column-blob access to whole-row-file reads.
type cephSource struct {
	mu    sync.Mutex
	cfg   CephConfig
	conn  *rados.Conn
	ioctx map[string]*rados.IOContext // pool -> ioctx
}

// ConfigureCeph installs the cluster credentials used for every ceph://
// path this process resolves. Call it before the first scan against such a
// path, and build with -tags=ceph for it to take effect.
func ConfigureCeph(cfg CephConfig) {
	defaultCephSource.mu.Lock()
	defaultCephSource.cfg = cfg
	defaultCephSource.conn = nil
	defaultCephSource.ioctx = nil
	defaultCephSource.mu.Unlock()
}

func (s *cephSource) ensureIOContext(pool string) (*rados.IOContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		conn, err := rados.NewConnWithClusterAndUser(s.cfg.ClusterName, s.cfg.UserName)
		if err != nil {
			return nil, fmt.Errorf("ceph source: connect: %w", err)
		}
		if s.cfg.ConfFile != "" {
			if err := conn.ReadConfigFile(s.cfg.ConfFile); err != nil {
				return nil, fmt.Errorf("ceph source: read config: %w", err)
			}
		} else if err := conn.ReadDefaultConfigFile(); err != nil {
			return nil, fmt.Errorf("ceph source: read default config: %w", err)
		}
		if err := conn.Connect(); err != nil {
			return nil, fmt.Errorf("ceph source: connect: %w", err)
		}
		s.conn = conn
		s.ioctx = make(map[string]*rados.IOContext)
	}
	if ctx, ok := s.ioctx[pool]; ok {
		return ctx, nil
	}
	ctx, err := s.conn.OpenIOContext(pool)
	if err != nil {
		return nil, fmt.Errorf("ceph source: open pool %s: %w", pool, err)
	}
	s.ioctx[pool] = ctx
	return ctx, nil
}

func splitCephPath(path string) (pool, object string, err error) {
	rest := strings.TrimPrefix(path, "ceph://")
	idx := strings.Index(rest, "/")
	if idx <= 0 {
		return "", "", fmt.Errorf("ceph source: malformed path %q, want ceph://pool/object", path)
	}
	return rest[:idx], rest[idx+1:], nil
}

func (s *cephSource) OpenOrCreate(path string) (readAtCloser, error) {
	pool, object, err := splitCephPath(path)
	if err != nil {
		return nil, err
	}
	ctx, err := s.ensureIOContext(pool)
	if err != nil {
		return nil, err
	}
	if _, err := ctx.Stat(object); err != nil {
		if err := ctx.WriteFull(object, []byte{}); err != nil {
			return nil, fmt.Errorf("ceph source: create %s: %w", path, err)
		}
	}
	return &cephFile{ctx: ctx, object: object}, nil
}

type cephFile struct {
	ctx    *rados.IOContext
	object string
}

func (f *cephFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.ctx.Read(f.object, p, uint64(off))
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *cephFile) Close() error { return nil }

func (f *cephFile) Size() (int64, error) {
	st, err := f.ctx.Stat(f.object)
	if err != nil {
		return 0, err
	}
	return int64(st.Size), nil
}
