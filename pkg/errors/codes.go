package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralRepositoryError represents a generic repository error.
	GeneralRepositoryError ErrorCode = "general_repository_error"
	// ConfigError represents an invalid or missing configuration value.
	ConfigError ErrorCode = "config_error"

	// ValidationFailed represents an execution request that failed structural validation.
	ValidationFailed ErrorCode = "validation_failed"
	// RiskCheckFailed represents an execution request blocked by a risk limit.
	RiskCheckFailed ErrorCode = "risk_check_failed"
	// RateLimitExceeded represents a venue call rejected by the local token bucket.
	RateLimitExceeded ErrorCode = "rate_limit_exceeded"
	// CircuitOpen represents a venue call rejected while the circuit breaker is open.
	CircuitOpen ErrorCode = "circuit_open"
	// TransientNetwork represents a retryable venue communication failure.
	TransientNetwork ErrorCode = "transient_network_error"
	// ExchangeRejected represents a terminal refusal from the venue.
	ExchangeRejected ErrorCode = "exchange_rejection"
	// SubmissionFailed represents a submission that exhausted retries or failed unexpectedly.
	SubmissionFailed ErrorCode = "submission_failure"
	// DataConsistency represents an update that does not match known order state.
	DataConsistency ErrorCode = "data_consistency_error"

	// KafkaConsumeError represents a failure reading from the event log.
	KafkaConsumeError ErrorCode = "kafka_consume_error"
	// KafkaPublishError represents a failure writing to the event log.
	KafkaPublishError ErrorCode = "kafka_publish_error"

	// RedisConfigError represents an invalid or nil Redis configuration.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents a failure connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisDisconnectionError represents a failure disconnecting from Redis.
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	// RedisPingError represents a failure pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisGetError represents a failure getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents a failure setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisDelError represents a failure deleting a value from Redis.
	RedisDelError ErrorCode = "redis_del_error"
	// RedisZAddError represents a failure adding members to a sorted set in Redis.
	RedisZAddError ErrorCode = "redis_zadd_error"
	// RedisZRangeError represents a failure reading a range from a sorted set in Redis.
	RedisZRangeError ErrorCode = "redis_zrange_error"

	// SnapshotMarshalError represents a snapshot that could not be encoded or decoded.
	SnapshotMarshalError ErrorCode = "snapshot_marshal_error"
	// SnapshotStoreError represents a failure persisting or loading a snapshot.
	SnapshotStoreError ErrorCode = "snapshot_store_error"
	// SnapshotArchiveError represents a failure appending to the snapshot archive.
	SnapshotArchiveError ErrorCode = "snapshot_archive_error"
)
