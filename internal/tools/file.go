package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// ============================================================================
// writeInFile
// ============================================================================

// FileTool writes a payload to a file on the host, creating or truncating it.
// Parent directories must already exist.
type FileTool struct {
	workDir string
	perm    os.FileMode
}

func NewFileTool(workDir string) *FileTool {
	return &FileTool{workDir: workDir, perm: 0o644}
}

func (f *FileTool) Name() string { return "writeInFile" }

func (f *FileTool) Description() string {
	return "Writes data into a file, replacing any existing content. Parent directories must exist."
}

func (f *FileTool) Parameters() []Parameter {
	return []Parameter{
		{Name: types.ArgFileName, Description: "Path of the file to write", Required: true},
		{Name: types.ArgData, Description: "Full content to write", Required: true},
	}
}

func (f *FileTool) Execute(ctx context.Context, args types.ToolArgs) (string, error) {
	name, _ := args.Get(types.ArgFileName)
	data, _ := args.Get(types.ArgData)

	if name == "" {
		return "", &IOError{Path: name, Err: errors.New("empty file name")}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := f.resolve(name)
	if err := os.WriteFile(path, []byte(data), f.perm); err != nil {
		return "", &IOError{Path: name, Err: err}
	}
	return "Data written into " + name, nil
}

func (f *FileTool) resolve(name string) string {
	if filepath.IsAbs(name) || f.workDir == "" {
		return name
	}
	return filepath.Join(f.workDir, name)
}
