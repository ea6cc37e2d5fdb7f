// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package report

import (
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/isopredict/isopredict/internal/reconstruct"
)

// WritePredictedHistory writes h to path on fs, in the same record format
// internal/logformat parses, so a predicted history can be fed straight
// back in as the input to another pass. fs is an afero.Fs rather than the
// os package directly so internal/runner's concurrent invocations (and
// tests) can point multiple analyses at an in-memory filesystem without
// touching disk or each other.
//
// When fs is the OS filesystem, a sibling ".lock" file, held for the
// duration of the write via gofrs/flock, guards against two concurrent
// invocations (internal/runner) racing to write the same predicted-history
// path; advisory locks of this kind are only effective against other
// cooperating isopredict processes, which is the only writer this path ever
// has in practice. Any other afero.Fs is written without a lock.
func WritePredictedHistory(fs afero.Fs, path string, h *reconstruct.History) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "report: creating directory for %s", path)
		}
	}
	if _, onDisk := fs.(*afero.OsFs); onDisk {
		lockPath := path + ".lock"
		lock := flock.New(lockPath)
		if err := lock.Lock(); err != nil {
			return errors.Wrapf(err, "report: locking %s", lockPath)
		}
		defer lock.Unlock()
	}
	if err := afero.WriteFile(fs, path, []byte(h.String()), 0o644); err != nil {
		return errors.Wrapf(err, "report: writing %s", path)
	}
	return nil
}
