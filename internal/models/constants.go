package models

import "time"

const (
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusCheckedOut = "checked_out"
	StatusCancelled  = "cancelled"
)

const (
	// DrainInterval is the fixed period between outbox drain attempts.
	DrainInterval = time.Second

	// ConnectivityPollInterval is the period of the feed liveness poll.
	ConnectivityPollInterval = 500 * time.Millisecond

	// OutboxStoreKey is the storage record holding the serialized queue.
	OutboxStoreKey = "outbox:queue"

	// SnapshotKeyPrefix prefixes per-hotel snapshot records.
	SnapshotKeyPrefix = "snapshot:"

	// DateFormat is the operational-day format used across scopes.
	DateFormat = "2006-01-02"
)
