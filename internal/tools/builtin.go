package tools

import "time"

// HostConfig configures the built-in host tools.
type HostConfig struct {
	WorkDir        string
	Shell          []string
	CommandTimeout time.Duration
}

// NewDefaultRegistry registers execCommand and writeInFile.
func NewDefaultRegistry(cfg HostConfig) (*Registry, error) {
	return NewRegistry(
		NewCommandTool(
			WithShell(cfg.Shell...),
			WithWorkDir(cfg.WorkDir),
			WithTimeout(cfg.CommandTimeout),
		),
		NewFileTool(cfg.WorkDir),
	)
}
