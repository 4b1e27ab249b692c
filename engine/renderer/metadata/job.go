package metadata

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 * This means it matters little which job thread this job runs on.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job. Only CPU work is allowed: reading and
	 * decoding asset bytes. Never touches the graphics device.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
)

/**
 * @brief Describes a job to be run on one of the job system workers.
 */
type JobTask struct {
	/** @brief The type of job. */
	JobType JobType
	/** @brief A short description used in logs. */
	Name string
	/** @brief Invoked on the worker. Required. */
	OnStart func() error
	/** @brief Invoked on the worker after OnStart succeeded. Optional. */
	OnComplete func()
	/** @brief Invoked on the worker after OnStart failed or panicked. Optional. */
	OnFailure func(err error)
}
