package internal

import "errors"

// Allocation and resolution failures cross the API boundary as typed errors;
// the orchestration layer translates them to user-facing responses. Ingestion
// failures never do: they are logged and counted inside the pipeline.
var (
	ErrInvalidKeyFormat    = errors.New("invalid key format")
	ErrKeyConflict         = errors.New("key already taken")
	ErrAllocationExhausted = errors.New("key allocation attempts exhausted")

	ErrNotFound     = errors.New("link not found")
	ErrUnauthorized = errors.New("password verification failed")
)
