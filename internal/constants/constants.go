package constants

const (
	MigrationLock = iota + 1
	TurnProcessorLock
)

const (
	// MaxPlayerNameLength bounds names accepted on submission.
	MaxPlayerNameLength = 64
	// MaxActionLength bounds actions accepted on attachment.
	MaxActionLength = 256
	// MaxProgress is the progress of a fully executed turn.
	MaxProgress = 100
	// AttachActionAttempts bounds how many successor jobs an action may chase.
	AttachActionAttempts = 3
)
