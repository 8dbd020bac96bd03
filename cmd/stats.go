package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const gatherStatsSQL = `BEGIN DBMS_STATS.GATHER_TABLE_STATS(ownname => USER, tabname => :1, cascade => TRUE); END;`

// gatherTableStats refreshes optimizer statistics on table and reports how
// long the refresh took. The refresher itself is the engine's; this wrapper
// only times it so the duration can be backfilled into the execution log.
func gatherTableStats(ctx context.Context, db *sql.DB, table Ref) (time.Duration, error) {
	start := time.Now()
	if _, err := db.ExecContext(ctx, gatherStatsSQL, table.Name()); err != nil {
		return 0, fmt.Errorf("failed to gather statistics on %s: %w", table, err)
	}
	return time.Since(start), nil
}
