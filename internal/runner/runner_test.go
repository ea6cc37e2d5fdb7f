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

package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isopredict/isopredict/internal/analysis"
	"github.com/isopredict/isopredict/internal/formula"
	"github.com/isopredict/isopredict/internal/historystore"
	"github.com/isopredict/isopredict/internal/oracle"
)

func tx(session, local string) historystore.TxID {
	return historystore.TxID{Session: session, Local: local}
}

func buildSerial(t *testing.T) *historystore.Store {
	t.Helper()
	b := historystore.NewBuilder()
	s1t1, s2t1 := tx("1", "1"), tx("2", "1")
	b.AddWrite(s1t1, "x")
	b.AddRead(s2t1, "x", s1t1)
	store, err := b.Build()
	require.NoError(t, err)
	return store
}

func TestRunManyRunsEveryJobIndependently(t *testing.T) {
	jobs := []Job{
		{Name: "a", Store: buildSerial(t)},
		{Name: "b", Store: buildSerial(t)},
	}
	outcomes := RunMany(context.Background(), jobs, analysis.Default(), func() formula.Oracle { return oracle.New() }, 5*time.Second)

	require.Len(t, outcomes, 2)
	for i, o := range outcomes {
		require.Equal(t, jobs[i].Name, o.Name)
		require.NoError(t, o.Err)
		require.Equal(t, formula.Unsat, o.Result.Outcome)
	}
}
