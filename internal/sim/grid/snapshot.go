package grid

import (
	"fmt"

	"voxelfill.ai/internal/persistence/snapshot"
	"voxelfill.ai/internal/sim/encoding"
)

// Export converts the level into a snapshot record.
func (l *Level) Export(seed int64, seq uint64) snapshot.LevelV1 {
	return snapshot.LevelV1{
		Header: snapshot.Header{Version: snapshot.Version, LevelID: l.ID, Seq: seq},
		Seed:   seed,
		Width:  l.Width,
		Height: l.Height,
		Length: l.Length,
		Blocks: encoding.EncodeRLE(l.Blocks),
		Ext:    encoding.EncodeRLE(l.Ext),
		Digest: l.Digest(),
	}
}

// Import rebuilds a level from a snapshot and verifies its digest.
func Import(snap snapshot.LevelV1) (*Level, error) {
	l, err := New(snap.Header.LevelID, snap.Width, snap.Height, snap.Length)
	if err != nil {
		return nil, err
	}
	blocks, err := encoding.DecodeRLE(snap.Blocks, l.Volume())
	if err != nil {
		return nil, fmt.Errorf("snapshot blocks: %w", err)
	}
	ext, err := encoding.DecodeRLE(snap.Ext, l.Volume())
	if err != nil {
		return nil, fmt.Errorf("snapshot ext: %w", err)
	}
	l.Blocks = blocks
	l.Ext = ext
	l.dirty = true
	if snap.Digest != "" && l.Digest() != snap.Digest {
		return nil, fmt.Errorf("snapshot digest mismatch: got %s want %s", l.Digest(), snap.Digest)
	}
	return l, nil
}
