package journal

import (
	"context"
	"encoding/json"
	"fmt"
)

// FeatureRecord identifies a journaled feature.
type FeatureRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Transitions is filled by ListFeatures.
	Transitions int `json:"transitions"`
}

// Transition is one journaled snapshot.
type Transition struct {
	FeatureID string          `json:"feature_id"`
	Seq       int64           `json:"seq"`
	Cause     string          `json:"cause"`
	State     string          `json:"state"`
	Payload   json.RawMessage `json:"payload"`
}

// RegisterFeature records a feature. Registering the same id twice is a
// no-op.
func (j *Journal) RegisterFeature(ctx context.Context, f FeatureRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO features (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, f.ID, f.Name)
	if err != nil {
		return fmt.Errorf("register feature: %w", err)
	}
	return nil
}

// WriteTransition appends a transition. A second write for the same
// (feature_id, seq) is silently ignored. The feature must be registered.
func (j *Journal) WriteTransition(ctx context.Context, t Transition) error {
	payload := t.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("write transition: payload is not valid JSON")
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO transitions (feature_id, seq, cause, state, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(feature_id, seq) DO NOTHING
	`, t.FeatureID, t.Seq, t.Cause, t.State, string(payload))
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	return nil
}

// ReadTransitions returns a feature's transitions ordered by seq.
// Returns an empty slice, not nil, when there are none.
func (j *Journal) ReadTransitions(ctx context.Context, featureID string) ([]Transition, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT feature_id, seq, cause, state, payload
		FROM transitions
		WHERE feature_id = ?
		ORDER BY seq ASC
	`, featureID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	transitions := []Transition{}
	for rows.Next() {
		var t Transition
		var payload string
		if err := rows.Scan(&t.FeatureID, &t.Seq, &t.Cause, &t.State, &payload); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Payload = json.RawMessage(payload)
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return transitions, nil
}

// ListFeatures returns every registered feature with its transition count,
// ordered by id. UUIDv7 ids therefore list oldest first.
func (j *Journal) ListFeatures(ctx context.Context) ([]FeatureRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT f.id, f.name, COUNT(t.seq)
		FROM features f
		LEFT JOIN transitions t ON t.feature_id = f.id
		GROUP BY f.id, f.name
		ORDER BY f.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	features := []FeatureRecord{}
	for rows.Next() {
		var f FeatureRecord
		if err := rows.Scan(&f.ID, &f.Name, &f.Transitions); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return features, nil
}
