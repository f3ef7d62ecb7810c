package indexdb

import (
	"context"
	"database/sql"
	"errors"
)

// LatestSnapshot returns the newest indexed snapshot of levelID.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context, levelID string) (SnapshotRow, bool, error) {
	var r SnapshotRow
	err := s.db.QueryRowContext(ctx,
		`SELECT seq,level_id,path,seed,width,height,length,digest FROM snapshots WHERE level_id=? ORDER BY seq DESC LIMIT 1`,
		levelID,
	).Scan(&r.Seq, &r.LevelID, &r.Path, &r.Seed, &r.Width, &r.Height, &r.Length, &r.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRow{}, false, nil
	}
	if err != nil {
		return SnapshotRow{}, false, err
	}
	return r, true, nil
}

// FillsByActor lists an actor's most recent ops, newest first.
func (s *SQLiteIndex) FillsByActor(ctx context.Context, actor string, limit int) ([]FillRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq,time,actor,action,x,y,z,COALESCE(op_id,''),COALESCE(status,''),changed,COALESCE(code,'')
		 FROM fills WHERE actor=? ORDER BY seq DESC LIMIT ?`,
		actor, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRow
	for rows.Next() {
		var r FillRow
		if err := rows.Scan(&r.Seq, &r.Time, &r.Actor, &r.Action, &r.Pos[0], &r.Pos[1], &r.Pos[2],
			&r.OpID, &r.Status, &r.Changed, &r.Code); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
