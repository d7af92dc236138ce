package envvar

const (
	// SomeEnv is the environment variable used to determine the environment
	SomeEnv = "SOME_ENV"

	// SomeLogFile overrides the path of the rotating log file
	SomeLogFile = "SOME_LOG_FILE"

	// SomeDevice is the environment variable used to pin the compute device
	SomeDevice = "SOME_DEVICE"

	// SomeForceAccelerator overrides the accelerator probe (true/false)
	SomeForceAccelerator = "SOME_FORCE_ACCELERATOR"

	// SomeCachePath is the environment variable used to determine the cache directory
	SomeCachePath = "SOME_CACHE_PATH"

	// SomeServerGRPCPort is the environment variable used to determine the gRPC port
	SomeServerGRPCPort = "SOME_SERVER_GRPC_PORT"
)
