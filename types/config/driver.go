package config

import (
	"fmt"
	"strings"
)

// StorageDriver selects the backend of the job store or the player store.
type StorageDriver int

const (
	Memory StorageDriver = iota + 1
	Redis
	Postgres
)

// String converts the StorageDriver enum to a human-readable string.
func (d StorageDriver) String() string {
	switch d {
	case Memory:
		return "memory"
	case Redis:
		return "redis"
	case Postgres:
		return "postgres"
	}
	return "unknown"
}

func ParseStorageDriver(s string) (StorageDriver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory":
		return Memory, nil
	case "redis":
		return Redis, nil
	case "postgres", "postgresql":
		return Postgres, nil
	}
	return 0, fmt.Errorf("unknown storage driver %q", s)
}
