//go:build !ceph

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

// CephConfig is a stub when Ceph support is not compiled in.
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
}

type cephSource struct{}

var defaultCephSource = &cephSource{}

// ConfigureCeph panics when Ceph support is not compiled in.
// Build with: go build -tags=ceph
func ConfigureCeph(cfg CephConfig) {
	panic("Ceph support not compiled in. Build with: go build -tags=ceph")
}

func (s *cephSource) OpenOrCreate(path string) (readAtCloser, error) {
	panic("Ceph support not compiled in. Build with: go build -tags=ceph")
}
