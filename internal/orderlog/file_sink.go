package orderlog

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
)

// FileSink keeps the log as one ordered JSON array on disk, read,
// appended and rewritten whole on every record. Fine at receptionist
// volume; the postgres sink covers anything heavier.
type FileSink struct {
	path   string
	mu     sync.Mutex
	logger logger.Logger
}

func NewFileSink(path string, log logger.Logger) *FileSink {
	return &FileSink{
		path:   path,
		logger: log.WithFields(map[string]interface{}{"component": "order_log_file"}),
	}
}

// Append adds the record to the end of the array.
func (fs *FileSink) Append(_ context.Context, record Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	existing, err := fs.readAllLocked()
	if err != nil {
		// A corrupt or missing log starts over rather than blocking orders.
		fs.logger.Warn("order log unreadable, starting fresh", map[string]interface{}{
			"error": err.Error(),
		})
		existing = nil
	}

	existing = append(existing, record)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return stderrors.NewOrderLogWriteFailedError(err)
	}
	if err := os.WriteFile(fs.path, data, 0o644); err != nil {
		return stderrors.NewOrderLogWriteFailedError(err)
	}
	return nil
}

// ReadAll returns every logged record, oldest first. Used only by the
// owner endpoint.
func (fs *FileSink) ReadAll() ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.readAllLocked()
}

func (fs *FileSink) readAllLocked() ([]Record, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
