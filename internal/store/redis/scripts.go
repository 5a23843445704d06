package redis

import goredis "github.com/redis/go-redis/v9"

// dequeueScript claims the lowest waiting job ID and marks it active.
// KEYS: waiting set, active set. ARGV: job key prefix, started_at.
var dequeueScript = goredis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[1], 0, 0)
if #ids == 0 then
	return false
end
local id = ids[1]
redis.call('ZREM', KEYS[1], id)
redis.call('ZADD', KEYS[2], id, id)
redis.call('HSET', ARGV[1] .. id, 'state', 'active', 'started_at', ARGV[2])
return id
`)

// completeScript moves an active job to completed.
// KEYS: job hash, active set, completed set. ARGV: id, finished_at, finished score.
// Returns -1 when the job is missing, 0 when it is not active.
var completeScript = goredis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'state')
if not st then
	return -1
end
if st ~= 'active' then
	return 0
end
redis.call('HSET', KEYS[1], 'state', 'completed', 'finished_at', ARGV[2])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`)

// attachActionScript sets the action of a waiting or active job.
// KEYS: job hash. ARGV: action.
var attachActionScript = goredis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'state')
if not st then
	return -1
end
if st ~= 'waiting' and st ~= 'active' then
	return 0
end
redis.call('HSET', KEYS[1], 'action', ARGV[1], 'has_action', '1')
return 1
`)

// progressScript raises the progress of an active job.
// KEYS: job hash. ARGV: progress.
var progressScript = goredis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'state')
if not st then
	return -1
end
if st ~= 'active' then
	return 0
end
local current = tonumber(redis.call('HGET', KEYS[1], 'progress') or '0')
local progress = tonumber(ARGV[1])
if progress > current then
	redis.call('HSET', KEYS[1], 'progress', progress)
end
return 1
`)
