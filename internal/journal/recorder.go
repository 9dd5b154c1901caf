package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/WOCOMLABS/jmv-arch/internal/feature"
)

// Encoder maps a state to its journal name and a JSON-marshalable payload.
type Encoder[S any] func(state S) (name string, payload any)

// Record copies every snapshot from sub into the journal until the
// subscription ends (returns nil) or ctx is done (returns ctx.Err()).
// Payloads are stored NFC-normalised. The subscription is closed on return.
func Record[S any](ctx context.Context, j *Journal, featureID string, sub *feature.Subscription[S], encode Encoder[S]) error {
	defer sub.Close()

	for {
		snap, ok := sub.Next(ctx)
		if !ok {
			return ctx.Err()
		}

		name, payload := encode(snap.State)
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("record seq %d: %w", snap.Seq, err)
		}

		err = j.WriteTransition(ctx, Transition{
			FeatureID: featureID,
			Seq:       snap.Seq,
			Cause:     snap.Cause,
			State:     name,
			Payload:   norm.NFC.Bytes(data),
		})
		if err != nil {
			return err
		}
	}
}
