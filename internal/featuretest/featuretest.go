// Package featuretest provides assertions for the collaborators of a
// feature (reducers, services, repositories) and for the state stream a
// running Feature publishes.
//
// Each collaborator is tested in isolation with one call:
//
//	featuretest.AssertReduces(t, reducer, current, action, expected)
//	featuretest.AssertServes(t, service, action, expected)
//	featuretest.AssertInteracts(t, repository, action, expected)
//
// Running features are observed through a Subscription:
//
//	snaps := featuretest.CollectUntil(t, f.State().Subscribe(), isDone)
package featuretest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/WOCOMLABS/jmv-arch/internal/feature"
)

// DefaultTimeout bounds how long Collect helpers wait for a state.
const DefaultTimeout = 2 * time.Second

// AssertReduces checks that reducer folds action into current to produce
// expected.
func AssertReduces[A feature.Action, S feature.State](t testing.TB, reducer feature.Reducer[A, S], current S, action A, expected S) bool {
	t.Helper()

	got := reducer.Reduce(context.Background(), action, current)
	return assert.Equal(t, expected, got,
		"reducer: %s + %s should result in %s", current.StateName(), action.ActionName(), expected.StateName())
}

// AssertServes checks that service answers action with a successful
// expected state.
func AssertServes[A feature.Action, S feature.State](t testing.TB, service feature.Service[A, S], action A, expected S) bool {
	t.Helper()

	got, err := service.UseWith(context.Background(), action).Get()
	if !assert.NoError(t, err, "service: %s should succeed", action.ActionName()) {
		return false
	}
	return assert.Equal(t, expected, got, "service: %s should return %s", action.ActionName(), expected.StateName())
}

// AssertServeFails checks that service answers action with a failure and
// returns its cause for further inspection.
func AssertServeFails[A feature.Action, S feature.State](t testing.TB, service feature.Service[A, S], action A) error {
	t.Helper()

	result := service.UseWith(context.Background(), action)
	assert.False(t, result.IsSuccess(), "service: %s should fail", action.ActionName())
	return result.Err()
}

// AssertInteracts checks that repository answers action with expected.
func AssertInteracts[A feature.Action, D feature.DTO](t testing.TB, repository feature.Repository[A, D], action A, expected D) bool {
	t.Helper()

	got, err := repository.InteractWith(context.Background(), action)
	if !assert.NoError(t, err, "repository: %s should succeed", action.ActionName()) {
		return false
	}
	return assert.Equal(t, expected, got, "repository: %s returned an unexpected payload", action.ActionName())
}

// Collect reads n snapshots from sub. It fails the test if they do not
// arrive within DefaultTimeout.
func Collect[S any](t testing.TB, sub *feature.Subscription[S], n int) []feature.Snapshot[S] {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	snaps := make([]feature.Snapshot[S], 0, n)
	for len(snaps) < n {
		snap, ok := sub.Next(ctx)
		if !ok {
			t.Fatalf("collected %d of %d snapshots before the stream ended", len(snaps), n)
		}
		snaps = append(snaps, snap)
	}
	return snaps
}

// CollectUntil reads snapshots from sub up to and including the first one
// whose state satisfies done.
func CollectUntil[S any](t testing.TB, sub *feature.Subscription[S], done func(S) bool) []feature.Snapshot[S] {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	var snaps []feature.Snapshot[S]
	for {
		snap, ok := sub.Next(ctx)
		if !ok {
			t.Fatalf("stream ended after %d snapshots without reaching the expected state", len(snaps))
		}
		snaps = append(snaps, snap)
		if done(snap.State) {
			return snaps
		}
	}
}

// AssertGolden compares data against testdata/golden/<name>.golden.
//
// To regenerate golden files, run the package tests with -update.
func AssertGolden(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// AssertGoldenJSON marshals v as indented JSON and compares it with
// AssertGolden.
func AssertGoldenJSON(t *testing.T, name string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden value: %v", err)
	}
	AssertGolden(t, name, append(data, '\n'))
}
