// Package journal persists the state transitions of features in SQLite.
//
// Features never write to the journal themselves. A recorder subscribes to
// a feature's state cell and copies every snapshot into the journal:
//
//	j, _ := journal.Open("jmv.db")
//	_ = j.RegisterFeature(ctx, journal.FeatureRecord{ID: f.ID(), Name: f.Name()})
//	go journal.Record(ctx, j, f.ID(), f.State().Subscribe(), encode)
//
// Rows are keyed by (feature_id, seq), so replaying the same snapshots is a
// no-op. Reads return transitions ordered by seq.
package journal
