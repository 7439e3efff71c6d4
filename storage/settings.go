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
	"os"

	"github.com/dc0d/onexit"
	units "github.com/docker/go-units"
)

// SettingsT mirrors the source's single global settings struct: a handful of
// process-wide tunables changed rarely and read often.
type SettingsT struct {
	Monitor              bool
	CacheCapacityDefault int
	CacheCapacityMax     int
	HandleBudgetBytes    int64
}

// Settings is the process-wide configuration. Changed through ChangeSettings,
// never mutated directly once scans have started reading it.
var Settings = SettingsT{
	CacheCapacityDefault: 100,
	CacheCapacityMax:     1000,
	HandleBudgetBytes:    64 * 1024 * 1024,
}

// GlobalTelemetry is the process-wide monitor sink, off by default.
var GlobalTelemetry = NewTelemetry(os.Stderr)

// GlobalHandleBudget bounds how many file handles the process keeps open
// across every Schema View sharing it.
var GlobalHandleBudget = NewHandleBudget(Settings.HandleBudgetBytes)

// GlobalRegistry deduplicates handles across Schema Views that resolve to
// the same underlying path.
var GlobalRegistry = newHandleRegistry()

func init() {
	onexit.Register(func() {
		GlobalTelemetry.Flush()
		GlobalHandleBudget.CloseAll()
	})
}

// ChangeSettings applies new process-wide tunables. handleBudget accepts a
// human-readable size string ("64MB") the way an operator would write it.
func ChangeSettings(monitor bool, cacheDefault, cacheMax int, handleBudget string) error {
	budgetBytes := Settings.HandleBudgetBytes
	if handleBudget != "" {
		b, err := units.RAMInBytes(handleBudget)
		if err != nil {
			return misconfigured("invalid handle budget: " + err.Error())
		}
		budgetBytes = b
	}
	Settings.Monitor = monitor
	if cacheDefault > 0 {
		Settings.CacheCapacityDefault = cacheDefault
	}
	if cacheMax > 0 {
		Settings.CacheCapacityMax = cacheMax
	}
	Settings.HandleBudgetBytes = budgetBytes
	GlobalHandleBudget.SetBudget(budgetBytes)
	if monitor {
		GlobalTelemetry.Enable()
	} else {
		GlobalTelemetry.Disable()
	}
	return nil
}
