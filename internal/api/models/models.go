// Package models holds the request and response bodies of the status API.
package models

// HealthData is the body of the health check.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

// HealthResponse represents the HTTP response for the health check.
type HealthResponse struct {
	Body HealthData
}

// VersionData is the build metadata.
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15T14:30:00Z" doc:"Build timestamp"`
	Modified  bool   `json:"modified" example:"false" doc:"Built from a dirty tree"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

// VersionResponse represents the HTTP response for version information.
type VersionResponse struct {
	Body VersionData
}

// StatusData describes the supervised pool.
type StatusData struct {
	State     string `json:"state" example:"running" doc:"Lifecycle state: idle, launching, running, draining, stopped"`
	Status    string `json:"status" example:"procman [4 processes]" doc:"Status line"`
	Mode      string `json:"mode" example:"prefork" doc:"Boot mode: none, prefork, preboot"`
	PIDs      []int  `json:"pids" doc:"Live worker process ids in launch order"`
	Live      int    `json:"live" example:"4" doc:"Number of live workers"`
	Desired   int    `json:"desired" example:"4" doc:"Desired worker count, 0 while draining"`
	Processes int    `json:"processes" example:"4" doc:"Configured pool size"`
	MaxMemory uint64 `json:"max_memory,omitempty" example:"268435456" doc:"Memory ceiling per worker in bytes"`
	Started   bool   `json:"started" example:"true" doc:"Whether the supervisor has been started"`
}

// StatusResponse represents the HTTP response for the pool status.
type StatusResponse struct {
	Body StatusData
}

// StopData acknowledges a stop request.
type StopData struct {
	State   string `json:"state" example:"draining" doc:"State after the request"`
	Message string `json:"message" example:"Shutdown initiated" doc:"Status message"`
}

// StopResponse represents the HTTP response for a stop request.
type StopResponse struct {
	Body StopData
}
