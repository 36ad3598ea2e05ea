// Package upload runs the async post-upload pipeline: chunk assembly and
// optional gzip decompression. Browsers compress multi-hundred-MB activity
// logs before sending; decompressing server-side keeps the transfer small.
package upload

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/license-insight/backend/internal/models"
)

// Status represents the upload processing status.
type Status string

const (
	StatusProcessing    Status = "processing"
	StatusAssembling    Status = "assembling"
	StatusDecompressing Status = "decompressing"
	StatusComplete      Status = "complete"
	StatusError         Status = "error"
)

// Job represents an async upload processing job.
type Job struct {
	ID             string           `json:"id"`
	UploadID       string           `json:"uploadId"`
	FileName       string           `json:"fileName"`
	TotalChunks    int              `json:"totalChunks"`
	OriginalSize   int64            `json:"originalSize"`
	CompressedSize int64            `json:"compressedSize"`
	Encoding       string           `json:"encoding"`
	Status         Status           `json:"status"`
	Progress       float64          `json:"progress"`
	Stage          string           `json:"stage"`
	StageProgress  float64          `json:"stageProgress"`
	FileInfo       *models.FileInfo `json:"fileInfo,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
}

// Store defines the interface needed from the storage layer.
type Store interface {
	CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.FileInfo, error)
	GetFilePath(id string) (string, error)
	RegisterFile(info *models.FileInfo)
}

// Manager handles async upload processing.
type Manager struct {
	jobs      map[string]*Job
	mu        sync.RWMutex
	uploadDir string
	store     Store
}

// NewManager creates a new upload processing manager.
func NewManager(uploadDir string, store Store) *Manager {
	return &Manager{
		jobs:      make(map[string]*Job),
		uploadDir: uploadDir,
		store:     store,
	}
}

// StartJob begins async processing of an upload.
func (m *Manager) StartJob(uploadID, fileName string, totalChunks int, originalSize, compressedSize int64, encoding string) *Job {
	job := &Job{
		ID:             uuid.New().String(),
		UploadID:       uploadID,
		FileName:       fileName,
		TotalChunks:    totalChunks,
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
		Encoding:       encoding,
		Status:         StatusProcessing,
		Stage:          "preparing",
		CreatedAt:      time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.processJob(job)

	return job
}

// GetJob retrieves a job by ID.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

func (m *Manager) processJob(job *Job) {
	fmt.Printf("[UploadJob %s] Starting processing: %s\n", job.ID[:8], job.FileName)

	// Stage 1: Assemble chunks
	m.updateJobStatus(job, StatusAssembling, "assembling chunks", 0)

	info, err := m.store.CompleteChunkedUpload(job.UploadID, job.FileName, job.TotalChunks)
	if err != nil {
		m.markJobError(job, fmt.Sprintf("failed to assemble chunks: %v", err))
		return
	}

	m.updateJobStatus(job, StatusAssembling, "assembling chunks", 100)
	fmt.Printf("[UploadJob %s] Chunks assembled: %s (%d bytes)\n", job.ID[:8], info.ID, info.Size)

	// Stage 2: Decompress if needed
	if job.Encoding == "gzip" || job.Encoding == "binary-gzip" {
		m.updateJobStatus(job, StatusDecompressing, "decompressing file", 0)

		fmt.Printf("[UploadJob %s] Decompressing file %s (compressed: %d bytes, expected: %d bytes)\n",
			job.ID[:8], info.ID, info.Size, job.OriginalSize)

		if err := m.decompressFileWithProgress(job, info.ID); err != nil {
			// Log but don't fail; the file might still be parseable as-is.
			fmt.Printf("[UploadJob %s] Warning: failed to decompress file %s: %v\n", job.ID[:8], info.ID, err)
		} else {
			info.Size = job.OriginalSize
			m.store.RegisterFile(info)
			fmt.Printf("[UploadJob %s] Successfully decompressed file %s\n", job.ID[:8], info.ID)
		}

		m.updateJobStatus(job, StatusDecompressing, "decompressing file", 100)
	}

	job.FileInfo = info
	m.markJobComplete(job)
	fmt.Printf("[UploadJob %s] Processing complete: %s (%d bytes)\n", job.ID[:8], info.ID, info.Size)
}

// decompressFileWithProgress decompresses a gzip file in place with progress
// tracking.
func (m *Manager) decompressFileWithProgress(job *Job, fileID string) error {
	path, err := m.store.GetFilePath(fileID)
	if err != nil {
		return err
	}

	compressedFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer compressedFile.Close()

	// Check gzip magic
	magic := make([]byte, 2)
	if _, err := compressedFile.Read(magic); err != nil {
		return err
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return fmt.Errorf("not a gzip file")
	}

	compressedFile.Seek(0, 0)

	reader, err := gzip.NewReader(compressedFile)
	if err != nil {
		return err
	}
	defer reader.Close()

	tempPath := path + ".decompressing"
	outFile, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	// Stream decompress with progress updates
	buf := make([]byte, 1024*1024)
	var written int64
	lastProgressUpdate := time.Now()

	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, writeErr := outFile.Write(buf[:n]); writeErr != nil {
				outFile.Close()
				os.Remove(tempPath)
				return fmt.Errorf("write error: %w", writeErr)
			}
			written += int64(n)

			if time.Since(lastProgressUpdate) > 100*time.Millisecond {
				progress := float64(written) / float64(job.OriginalSize) * 100
				if progress > 99 {
					progress = 99
				}
				m.updateJobStatus(job, StatusDecompressing, "decompressing file", progress)
				lastProgressUpdate = time.Now()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				outFile.Close()
				os.Remove(tempPath)
				return fmt.Errorf("read error: %w", readErr)
			}
			break
		}
	}

	outFile.Close()

	if written != job.OriginalSize {
		os.Remove(tempPath)
		return fmt.Errorf("decompressed size mismatch: got %d bytes, expected %d bytes", written, job.OriginalSize)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}

	return nil
}

// updateJobStatus updates job progress (thread-safe).
func (m *Manager) updateJobStatus(job *Job, status Status, stage string, stageProgress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage
	job.StageProgress = stageProgress

	// Overall progress: assembling 0-40%, decompressing 40-90%, rest on completion.
	switch status {
	case StatusAssembling:
		job.Progress = stageProgress * 0.4
	case StatusDecompressing:
		job.Progress = 40 + stageProgress*0.5
	case StatusComplete:
		job.Progress = 100
	}
}

func (m *Manager) markJobComplete(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusComplete
	job.Progress = 100
	now := time.Now()
	job.CompletedAt = &now
}

func (m *Manager) markJobError(job *Job, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusError
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
	fmt.Printf("[UploadJob %s] Error: %s\n", job.ID[:8], errMsg)
}

// CleanupOldJobs removes jobs older than the specified duration.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status == StatusComplete || job.Status == StatusError {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(m.jobs, id)
			}
		}
	}
}
