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
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/isopredict/isopredict/internal/formula"
)

// DumpDebug writes bag's assertion list, its declared IntVar domains, and
// (when model is non-nil) each domain variable's value in that model, to
// path on fs as zstd-compressed text. It is only ever produced when
// Config.Debug is set: a bag's assertion count grows with the size of the
// history, and the uncompressed dump of a realistic run is large enough
// that shipping it uncompressed by default would surprise nobody more than
// the disk usage would.
func DumpDebug(fs afero.Fs, path string, bag *formula.Bag, model formula.Model) error {
	var sb strings.Builder
	sb.WriteString(bag.String())
	sb.WriteString("\n--- domains ---\n")
	for _, name := range bag.Domains() {
		lo, hi, _ := bag.Domain(name)
		if model != nil {
			fmt.Fprintf(&sb, "%s in [%d, %d] = %d\n", name, lo, hi, formula.EvalInt(formula.IntVar(name), model))
		} else {
			fmt.Fprintf(&sb, "%s in [%d, %d]\n", name, lo, hi)
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return errors.Wrap(err, "report: constructing zstd encoder")
	}
	defer enc.Close()
	compressed := enc.EncodeAll([]byte(sb.String()), nil)

	if err := afero.WriteFile(fs, path, compressed, 0o644); err != nil {
		return errors.Wrapf(err, "report: writing debug dump %s", path)
	}
	return nil
}
