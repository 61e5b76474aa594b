package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/waypoint/pkg/api"
)

// Redis is a Store keeping JSON documents in Redis. Keys are laid out as:
//
//	<prefix>:graph:<id>  graph document
//	<prefix>:graphs      set of graph IDs
//	<prefix>:run:<id>    run document
//	<prefix>:runs        set of run IDs
type Redis struct {
	client *redis.Client
	prefix string
}

const DefaultRedisPrefix = "waypoint"

var _ Store = (*Redis)(nil)

// NewRedis creates a Store over an existing client. An empty prefix selects
// DefaultRedisPrefix
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
	}
}

// OpenRedis connects to the server at addr and verifies it responds
func OpenRedis(
	ctx context.Context, addr, password string, db int, prefix string,
) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) PutGraph(ctx context.Context, g *api.Graph) error {
	if g.ID == "" {
		return ErrMissingID
	}
	data, err := encodeGraph(g)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.graphKey(g.ID), data, 0)
		pipe.SAdd(ctx, r.graphsKey(), string(g.ID))
		return nil
	})
	return err
}

func (r *Redis) GetGraph(ctx context.Context, id api.GraphID) (*api.Graph, error) {
	data, err := r.client.Get(ctx, r.graphKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, api.ErrGraphNotFound
		}
		return nil, err
	}
	return decodeGraph(data)
}

func (r *Redis) ListGraphs(ctx context.Context) ([]*api.Graph, error) {
	ids, err := r.client.SMembers(ctx, r.graphsKey()).Result()
	if err != nil {
		return nil, err
	}
	res := make([]*api.Graph, 0, len(ids))
	for _, id := range ids {
		g, err := r.GetGraph(ctx, api.GraphID(id))
		if errors.Is(err, api.ErrGraphNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return sortGraphs(res), nil
}

func (r *Redis) DeleteGraph(ctx context.Context, id api.GraphID) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.graphKey(id))
		pipe.SRem(ctx, r.graphsKey(), string(id))
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return api.ErrGraphNotFound
	}
	return nil
}

func (r *Redis) PutRun(ctx context.Context, run *api.Run) error {
	if run.ID == "" {
		return ErrMissingID
	}
	data, err := encodeRun(run)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.runKey(run.ID), data, 0)
		pipe.SAdd(ctx, r.runsKey(), string(run.ID))
		return nil
	})
	return err
}

func (r *Redis) GetRun(ctx context.Context, id api.RunID) (*api.Run, error) {
	data, err := r.client.Get(ctx, r.runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, api.ErrRunNotFound
		}
		return nil, err
	}
	return decodeRun(data)
}

func (r *Redis) ListRuns(ctx context.Context) ([]*api.Run, error) {
	ids, err := r.client.SMembers(ctx, r.runsKey()).Result()
	if err != nil {
		return nil, err
	}
	res := make([]*api.Run, 0, len(ids))
	for _, id := range ids {
		run, err := r.GetRun(ctx, api.RunID(id))
		if errors.Is(err, api.ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return sortRuns(res), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) graphKey(id api.GraphID) string {
	return r.prefix + ":graph:" + string(id)
}

func (r *Redis) graphsKey() string {
	return r.prefix + ":graphs"
}

func (r *Redis) runKey(id api.RunID) string {
	return r.prefix + ":run:" + string(id)
}

func (r *Redis) runsKey() string {
	return r.prefix + ":runs"
}
