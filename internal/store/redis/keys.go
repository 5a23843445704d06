package redis

import "strconv"

// All keys are prefixed with "turnqueue:" to avoid collisions.
const keyPrefix = "turnqueue:"

// jobKeyPrefix prefixes the Hash holding one job: turnqueue:job:{id}
const jobKeyPrefix = keyPrefix + "job:"

// jobIDKey is the counter allocating job IDs. IDs are never reused.
const jobIDKey = keyPrefix + "job_id"

func jobKey(id int64) string { return jobKeyPrefix + strconv.FormatInt(id, 10) }

// stateKey returns the Sorted Set indexing jobs in a state: turnqueue:state:{state}
// Waiting and active sets are scored by job ID, the completed set by finish time.
func stateKey(state string) string { return keyPrefix + "state:" + state }
