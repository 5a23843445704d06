package redis

import (
	"context"
	"errors"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	goredis "github.com/redis/go-redis/v9"
	"sort"
	"strconv"
	"time"
)

// RedisJobStore keeps each job in a Hash and indexes it in one Sorted Set
// per state. State changes run as Lua scripts so they are atomic.
type RedisJobStore struct {
	client *goredis.Client
	now    func() time.Time
}

var _ store.JobStore = (*RedisJobStore)(nil)

func NewRedisJobStore(client *goredis.Client) *RedisJobStore {
	return &RedisJobStore{
		client: client,
		now:    time.Now,
	}
}

func (s *RedisJobStore) Enqueue(ctx context.Context, player types.Player) (int64, error) {
	id, err := s.client.Incr(ctx, jobIDKey).Result()
	if err != nil {
		return 0, unavailable("enqueue allocate id", err)
	}

	fields := map[string]any{
		"id":          id,
		"player_id":   player.ID,
		"player_name": player.Name,
		"action":      player.ActionValue(),
		"has_action":  boolField(player.Action != nil),
		"state":       state.StateWaiting.String(),
		"progress":    0,
		"created_at":  formatTime(s.now()),
		"started_at":  "",
		"finished_at": "",
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(id), fields)
	pipe.ZAdd(ctx, stateKey(state.StateWaiting.String()), goredis.Z{Score: float64(id), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, unavailable("enqueue", err)
	}
	return id, nil
}

func (s *RedisJobStore) DequeueNext(ctx context.Context) (*types.Job, error) {
	res, err := dequeueScript.Run(ctx, s.client,
		[]string{stateKey(state.StateWaiting.String()), stateKey(state.StateActive.String())},
		jobKeyPrefix, formatTime(s.now()),
	).Text()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, unavailable("dequeue", err)
	}

	id, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: dequeue returned invalid id %q", custom_errors.ErrQueueUnavailable, res)
	}
	return s.GetJob(ctx, id)
}

func (s *RedisJobStore) Complete(ctx context.Context, jobID int64) (*types.Job, error) {
	now := s.now()
	code, err := completeScript.Run(ctx, s.client,
		[]string{jobKey(jobID), stateKey(state.StateActive.String()), stateKey(state.StateCompleted.String())},
		jobID, formatTime(now), now.UnixMilli(),
	).Int64()
	if err != nil {
		return nil, unavailable("complete", err)
	}
	switch code {
	case -1:
		return nil, fmt.Errorf("%w: job %d does not exist", custom_errors.ErrInvalidStateTransition, jobID)
	case 0:
		return nil, fmt.Errorf("%w: job %d is not active", custom_errors.ErrInvalidStateTransition, jobID)
	}
	return s.GetJob(ctx, jobID)
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobID int64) (*types.Job, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, unavailable("get job", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return jobFromMap(fields)
}

func (s *RedisJobStore) GetJobsByState(ctx context.Context, states ...state.JobState) ([]types.Job, error) {
	var ids []int64
	for _, st := range store.States(states) {
		members, err := s.client.ZRange(ctx, stateKey(st.String()), 0, -1).Result()
		if err != nil {
			return nil, unavailable("list jobs", err)
		}
		for _, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })

	if len(ids) == 0 {
		return []types.Job{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, unavailable("list jobs", err)
	}

	jobs := make([]types.Job, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // purged between the two reads
		}
		job, err := jobFromMap(fields)
		if err != nil {
			return nil, err
		}
		if !state.Contains(store.States(states), job.State) {
			continue // moved between the two reads
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func (s *RedisJobStore) FindByPlayerName(ctx context.Context, name string, states ...state.JobState) (*types.Job, error) {
	jobs, err := s.GetJobsByState(ctx, states...)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		if jobs[i].Data.Name == name {
			return &jobs[i], nil
		}
	}
	return nil, nil
}

func (s *RedisJobStore) AttachAction(ctx context.Context, jobID int64, action string) (*types.Job, error) {
	code, err := attachActionScript.Run(ctx, s.client, []string{jobKey(jobID)}, action).Int64()
	if err != nil {
		return nil, unavailable("attach action", err)
	}
	switch code {
	case -1:
		return nil, fmt.Errorf("%w: job %d", custom_errors.ErrNotFound, jobID)
	case 0:
		return nil, fmt.Errorf("%w: job %d is no longer in the queue", custom_errors.ErrInvalidStateTransition, jobID)
	}
	return s.GetJob(ctx, jobID)
}

func (s *RedisJobStore) UpdateProgress(ctx context.Context, jobID int64, progress int) error {
	code, err := progressScript.Run(ctx, s.client, []string{jobKey(jobID)}, store.ClampProgress(progress)).Int64()
	if err != nil {
		return unavailable("update progress", err)
	}
	switch code {
	case -1:
		return fmt.Errorf("%w: job %d", custom_errors.ErrNotFound, jobID)
	case 0:
		return fmt.Errorf("%w: job %d is not active", custom_errors.ErrInvalidStateTransition, jobID)
	}
	return nil
}

func (s *RedisJobStore) CountAllJobsGroupedByState(ctx context.Context) (map[state.JobState]int, error) {
	pipe := s.client.Pipeline()
	cmds := make(map[state.JobState]*goredis.IntCmd, len(state.AllStates))
	for _, st := range state.AllStates {
		cmds[st] = pipe.ZCard(ctx, stateKey(st.String()))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, unavailable("count jobs", err)
	}

	result := make(map[state.JobState]int, len(cmds))
	for st, cmd := range cmds {
		result[st] = int(cmd.Val())
	}
	return result, nil
}

func (s *RedisJobStore) PurgeCompleted(ctx context.Context, finishedBefore time.Time) (int, error) {
	completed := stateKey(state.StateCompleted.String())
	members, err := s.client.ZRangeByScore(ctx, completed, &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(finishedBefore.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, unavailable("purge completed", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		pipe.Del(ctx, jobKey(id))
		pipe.ZRem(ctx, completed, m)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, unavailable("purge completed", err)
	}
	return len(members), nil
}

func (s *RedisJobStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *RedisJobStore) Close() error {
	return s.client.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %v", custom_errors.ErrQueueUnavailable, op, err)
}

func jobFromMap(fields map[string]string) (*types.Job, error) {
	var job types.Job
	var err error

	if job.ID, err = strconv.ParseInt(fields["id"], 10, 64); err != nil {
		return nil, fmt.Errorf("%w: corrupt job id %q", custom_errors.ErrQueueUnavailable, fields["id"])
	}
	job.Data.ID, _ = strconv.ParseInt(fields["player_id"], 10, 64)
	job.Data.Name = fields["player_name"]
	if fields["has_action"] == "1" {
		action := fields["action"]
		job.Data.Action = &action
	}
	job.State = state.JobState(fields["state"])
	job.Progress, _ = strconv.Atoi(fields["progress"])
	if t := parseTime(fields["created_at"]); t != nil {
		job.CreatedAt = *t
	}
	job.StartedAt = parseTime(fields["started_at"])
	job.FinishedAt = parseTime(fields["finished_at"])
	return &job, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil
	}
	return &t
}
