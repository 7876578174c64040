package utils

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OutputManager handles output file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// ExportFilePath generates <base>/<stem>_<timestamp>.xlsx and makes sure
// the base directory exists.
func (om *OutputManager) ExportFilePath(stem string, at time.Time) (string, error) {
	if err := om.EnsureOutputDirExists(); err != nil {
		return "", err
	}
	// Clean the stem to remove any path separators
	cleanStem := filepath.Base(strings.TrimSpace(stem))
	name := fmt.Sprintf("%s_%s.xlsx", cleanStem, at.Format("20060102_150405"))
	return filepath.Join(om.BaseOutputDir, name), nil
}

// GetFileSize returns the size of a file in bytes
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	if err := os.MkdirAll(om.BaseOutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// FileResponse is an http.ResponseWriter that writes the body to a file.
// The body goes to a temporary file next to the target, which only takes
// the target name on Commit, so a failed export never leaves a file that
// looks complete.
type FileResponse struct {
	path   string
	tmp    *os.File
	buf    *bufio.Writer
	header http.Header
	status int
}

// NewFileResponse prepares a response body destined for path.
func NewFileResponse(path string) (*FileResponse, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary output file: %w", err)
	}
	return &FileResponse{
		path:   path,
		tmp:    tmp,
		buf:    bufio.NewWriter(tmp),
		header: http.Header{},
	}, nil
}

func (fr *FileResponse) Header() http.Header { return fr.header }

func (fr *FileResponse) WriteHeader(code int) {
	if fr.status == 0 {
		fr.status = code
	}
}

func (fr *FileResponse) Write(p []byte) (int, error) {
	if fr.status == 0 {
		fr.status = http.StatusOK
	}
	return fr.buf.Write(p)
}

// Flush pushes buffered bytes to the file.
func (fr *FileResponse) Flush() {
	fr.buf.Flush()
}

// Status is the status code the exporter reported.
func (fr *FileResponse) Status() int { return fr.status }

// Commit moves the finished body to its target path.
func (fr *FileResponse) Commit() error {
	if err := fr.buf.Flush(); err != nil {
		fr.Discard()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := fr.tmp.Close(); err != nil {
		os.Remove(fr.tmp.Name())
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(fr.tmp.Name(), fr.path); err != nil {
		os.Remove(fr.tmp.Name())
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

// Discard drops the partial body.
func (fr *FileResponse) Discard() {
	fr.tmp.Close()
	os.Remove(fr.tmp.Name())
}
