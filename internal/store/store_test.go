package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/waypoint/internal/store"
	"github.com/kode4food/waypoint/pkg/api"
)

type factory func(t *testing.T) store.Store

func backends() map[string]factory {
	return map[string]factory{
		"memory": func(*testing.T) store.Store {
			return store.NewMemory()
		},
		"redis": func(t *testing.T) store.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			return store.NewRedis(client, "test")
		},
		"sqlite": func(t *testing.T) store.Store {
			s, err := store.OpenSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s store.Store)) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			defer func() { _ = s.Close() }()
			fn(t, s)
		})
	}
}

func testGraph(id api.GraphID, created time.Time) *api.Graph {
	return &api.Graph{
		CreatedAt: created,
		ID:        id,
		Name:      "graph " + string(id),
		Entry:     "a",
		Nodes: []*api.Node{
			{ID: "a", Tool: "first", Config: map[string]any{"k": "v"}},
			{ID: "b", Kind: api.NodeEnd},
		},
		Edges: []*api.Edge{
			{From: "a", To: "b", Kind: api.EdgeConditional, Condition: "x"},
		},
	}
}

func testRun(id api.RunID, started time.Time) *api.Run {
	return &api.Run{
		StartedAt:    started,
		InitialState: api.State{"code": "x"},
		State:        api.State{"code": "x", "score": 0.5},
		ID:           id,
		GraphID:      "g",
		Status:       api.RunRunning,
		Log: []*api.LogEntry{{
			Timestamp: started,
			NodeID:    "a",
			Tool:      "first",
			Status:    api.LogCompleted,
			Output:    api.State{"score": 0.5},
			Duration:  3,
		}},
	}
}

func TestGraphs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		base := time.Unix(1700000000, 0).UTC()

		_, err := s.GetGraph(ctx, "missing")
		assert.ErrorIs(t, err, api.ErrGraphNotFound)

		require.NoError(t, s.PutGraph(ctx, testGraph("g2", base.Add(time.Second))))
		require.NoError(t, s.PutGraph(ctx, testGraph("g1", base)))

		g, err := s.GetGraph(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, api.GraphID("g1"), g.ID)
		assert.Equal(t, "graph g1", g.Name)
		assert.True(t, base.Equal(g.CreatedAt))
		assert.Len(t, g.Nodes, 2)
		assert.Equal(t, "v", g.Nodes[0].Config["k"])
		assert.Equal(t, "x", g.Edges[0].Condition)

		list, err := s.ListGraphs(ctx)
		require.NoError(t, err)
		if assert.Len(t, list, 2) {
			assert.Equal(t, api.GraphID("g1"), list[0].ID)
			assert.Equal(t, api.GraphID("g2"), list[1].ID)
		}

		require.NoError(t, s.DeleteGraph(ctx, "g1"))
		assert.ErrorIs(t, s.DeleteGraph(ctx, "g1"), api.ErrGraphNotFound)
		_, err = s.GetGraph(ctx, "g1")
		assert.ErrorIs(t, err, api.ErrGraphNotFound)

		list, err = s.ListGraphs(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestRuns(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		base := time.Unix(1700000000, 0).UTC()

		_, err := s.GetRun(ctx, "missing")
		assert.ErrorIs(t, err, api.ErrRunNotFound)

		r := testRun("r1", base)
		require.NoError(t, s.PutRun(ctx, r))
		require.NoError(t, s.PutRun(ctx, testRun("r0", base.Add(-time.Second))))

		r.Status = api.RunCompleted
		r.CompletedAt = base.Add(time.Minute)
		require.NoError(t, s.PutRun(ctx, r))

		got, err := s.GetRun(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, api.RunCompleted, got.Status)
		assert.Equal(t, api.GraphID("g"), got.GraphID)
		assert.Equal(t, "x", got.State["code"])
		assert.Equal(t, 0.5, got.State["score"])
		assert.Equal(t, time.Minute, got.Duration())
		if assert.Len(t, got.Log, 1) {
			assert.Equal(t, api.NodeID("a"), got.Log[0].NodeID)
			assert.Equal(t, int64(3), got.Log[0].Duration)
		}

		list, err := s.ListRuns(ctx)
		require.NoError(t, err)
		if assert.Len(t, list, 2) {
			assert.Equal(t, api.RunID("r0"), list[0].ID)
			assert.Equal(t, api.RunID("r1"), list[1].ID)
		}
	})
}

func TestMissingID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		assert.ErrorIs(t, s.PutGraph(ctx, &api.Graph{}), store.ErrMissingID)
		assert.ErrorIs(t, s.PutRun(ctx, &api.Run{}), store.ErrMissingID)
	})
}

func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	r := testRun("r1", time.Now())
	require.NoError(t, s.PutRun(ctx, r))
	r.State["code"] = "changed"

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "x", got.State["code"])

	got.State["code"] = "again"
	again, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "x", again.State["code"])
}

func TestParseBackend(t *testing.T) {
	b, err := store.ParseBackend("")
	assert.NoError(t, err)
	assert.Equal(t, store.BackendMemory, b)

	b, err = store.ParseBackend("Redis")
	assert.NoError(t, err)
	assert.Equal(t, store.BackendRedis, b)

	_, err = store.ParseBackend("postgres")
	assert.ErrorIs(t, err, store.ErrUnknownBackend)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := store.OpenRedis(context.Background(), mr.Addr(), "", 0, "")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.PutGraph(context.Background(),
		testGraph("g", time.Now()),
	))
	assert.True(t, mr.Exists("waypoint:graph:g"))
	ok, err := mr.SIsMember("waypoint:graphs", "g")
	assert.NoError(t, err)
	assert.True(t, ok)
}
