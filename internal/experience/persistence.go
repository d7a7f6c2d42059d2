package experience

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	// ErrPersistenceNotConfigured is returned when persistence operations are attempted without configuration
	ErrPersistenceNotConfigured = errors.New("persistence layer not configured")
	// ErrInvalidPersistenceType is returned when an unknown persistence type is specified
	ErrInvalidPersistenceType = errors.New("invalid persistence type")
)

// PersistenceType represents the type of persistence backend
type PersistenceType string

const (
	// PersistenceTypeNone disables persistence
	PersistenceTypeNone PersistenceType = "none"
	// PersistenceTypeFile enables file-based persistence
	PersistenceTypeFile PersistenceType = "file"
)

const filePattern = "traces_*.jsonl"

// PersistenceConfig contains configuration for the persistence layer
type PersistenceConfig struct {
	Type PersistenceType

	// File-based config
	BaseDir          string
	MaxFileSize      int64 // Max size per file in bytes
	RotationInterval time.Duration
}

// DefaultPersistenceConfig returns a default persistence configuration
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		Type:             PersistenceTypeNone,
		BaseDir:          "traces",
		MaxFileSize:      100 * 1024 * 1024, // 100MB
		RotationInterval: 1 * time.Hour,
	}
}

// PersistenceLayer defines the interface for persisting trace records
type PersistenceLayer interface {
	// Write persists a batch of records
	Write(ctx context.Context, records []*structpb.Struct) error

	// Read retrieves the records of gameID (all games when empty)
	Read(ctx context.Context, gameID string, limit int) ([]*structpb.Struct, error)

	// Delete removes the persisted records of gameID
	Delete(ctx context.Context, gameID string) error

	// Close cleanly shuts down the persistence layer
	Close() error

	// Stats returns persistence statistics
	Stats() PersistenceStats
}

// PersistenceStats contains statistics about persistence operations
type PersistenceStats struct {
	TotalWritten  int64
	TotalRead     int64
	TotalDeleted  int64
	BytesWritten  int64
	BytesRead     int64
	WriteErrors   int64
	ReadErrors    int64
	LastWriteTime time.Time
	LastReadTime  time.Time
}

// FilePersistence writes one protojson record per line, rotating files by
// size and age.
type FilePersistence struct {
	config PersistenceConfig
	logger zerolog.Logger

	mu    sync.RWMutex
	stats PersistenceStats

	currentFile *os.File
	currentName string
	currentSize int64
	fileIndex   int

	closeChan chan struct{}
	wg        sync.WaitGroup
}

// NewFilePersistence creates a new file-based persistence layer
func NewFilePersistence(config PersistenceConfig, logger zerolog.Logger) (*FilePersistence, error) {
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	fp := &FilePersistence{
		config:    config,
		logger:    logger.With().Str("component", "file_persistence").Logger(),
		closeChan: make(chan struct{}),
	}

	if err := fp.rotateFile(); err != nil {
		return nil, err
	}

	if config.RotationInterval > 0 {
		fp.wg.Add(1)
		go fp.rotationLoop()
	}

	return fp, nil
}

// Write persists a batch of records to file
func (fp *FilePersistence) Write(ctx context.Context, records []*structpb.Struct) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.currentFile == nil {
		return ErrPersistenceNotConfigured
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if fp.config.MaxFileSize > 0 && fp.currentSize >= fp.config.MaxFileSize {
			if err := fp.rotateFile(); err != nil {
				fp.stats.WriteErrors++
				return fmt.Errorf("failed to rotate file: %w", err)
			}
		}

		data, err := protojson.Marshal(rec)
		if err != nil {
			fp.stats.WriteErrors++
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		n, err := fp.currentFile.Write(append(data, '\n'))
		if err != nil {
			fp.stats.WriteErrors++
			return fmt.Errorf("failed to write record: %w", err)
		}

		fp.currentSize += int64(n)
		fp.stats.TotalWritten++
		fp.stats.BytesWritten += int64(n)
	}

	if err := fp.currentFile.Sync(); err != nil {
		fp.logger.Warn().Err(err).Msg("Failed to sync file")
	}

	fp.stats.LastWriteTime = time.Now()

	fp.logger.Debug().
		Int("batch_size", len(records)).
		Int64("file_size", fp.currentSize).
		Msg("Wrote trace batch to file")

	return nil
}

// Read retrieves records from storage
func (fp *FilePersistence) Read(ctx context.Context, gameID string, limit int) ([]*structpb.Struct, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(fp.config.BaseDir, filePattern))
	if err != nil {
		fp.stats.ReadErrors++
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var records []*structpb.Struct
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(records) >= limit {
			break
		}

		recs, err := fp.readFile(file, gameID, limit-len(records))
		if err != nil {
			fp.stats.ReadErrors++
			fp.logger.Warn().
				Err(err).
				Str("file", file).
				Msg("Failed to read trace file")
			continue
		}

		records = append(records, recs...)
	}

	fp.stats.LastReadTime = time.Now()
	fp.stats.TotalRead += int64(len(records))

	return records, nil
}

// readFile reads the records of gameID from a single file; limit <= 0 reads
// them all. Must be called with mu held.
func (fp *FilePersistence) readFile(filename, gameID string, limit int) ([]*structpb.Struct, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []*structpb.Struct
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if limit > 0 && len(records) >= limit {
			break
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec := &structpb.Struct{}
		if err := protojson.Unmarshal(line, rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}

		if gameID == "" || GameIDOf(rec) == gameID {
			records = append(records, rec)
			fp.stats.BytesRead += int64(len(line))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return records, nil
}

// Delete rewrites every trace file without the records of gameID.
func (fp *FilePersistence) Delete(ctx context.Context, gameID string) (err error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.currentFile == nil {
		return ErrPersistenceNotConfigured
	}
	if err := fp.currentFile.Close(); err != nil {
		return fmt.Errorf("failed to close current file: %w", err)
	}
	fp.currentFile = nil
	defer func() {
		if reopenErr := fp.reopenCurrent(); reopenErr != nil && err == nil {
			err = reopenErr
		}
	}()

	files, err := filepath.Glob(filepath.Join(fp.config.BaseDir, filePattern))
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		removed, err := fp.filterFile(file, gameID)
		if err != nil {
			return err
		}
		fp.stats.TotalDeleted += removed
	}

	fp.logger.Info().Str("game_id", gameID).Int64("total_deleted", fp.stats.TotalDeleted).Msg("Deleted game traces")
	return nil
}

// reopenCurrent reopens the current file for appending. Must be called with
// mu held.
func (fp *FilePersistence) reopenCurrent() error {
	f, err := os.OpenFile(fp.currentName, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to reopen file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	fp.currentFile = f
	fp.currentSize = info.Size()
	return nil
}

// filterFile drops gameID's lines from filename and returns how many went.
func (fp *FilePersistence) filterFile(filename, gameID string) (int64, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return 0, err
	}
	var kept bytes.Buffer
	var removed int64
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		rec := &structpb.Struct{}
		if err := protojson.Unmarshal(line, rec); err != nil {
			return removed, fmt.Errorf("%s: failed to unmarshal record: %w", filename, err)
		}
		if GameIDOf(rec) == gameID {
			removed++
			continue
		}
		kept.Write(line)
		kept.WriteByte('\n')
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, os.WriteFile(filename, kept.Bytes(), 0644)
}

// rotateFile closes the current file and opens a new one
func (fp *FilePersistence) rotateFile() error {
	if fp.currentFile != nil {
		if err := fp.currentFile.Close(); err != nil {
			fp.logger.Warn().Err(err).Msg("Failed to close previous file")
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	var filename string
	for {
		filename = filepath.Join(fp.config.BaseDir, fmt.Sprintf("traces_%s_%04d.jsonl", timestamp, fp.fileIndex))
		fp.fileIndex++
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			break
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	fp.currentFile = file
	fp.currentName = filename
	fp.currentSize = 0

	fp.logger.Info().
		Str("filename", filename).
		Msg("Rotated to new trace file")

	return nil
}

// rotationLoop handles periodic file rotation
func (fp *FilePersistence) rotationLoop() {
	defer fp.wg.Done()

	ticker := time.NewTicker(fp.config.RotationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fp.mu.Lock()
			if err := fp.rotateFile(); err != nil {
				fp.logger.Error().Err(err).Msg("Failed to rotate file")
			}
			fp.mu.Unlock()

		case <-fp.closeChan:
			return
		}
	}
}

// Close cleanly shuts down the persistence layer
func (fp *FilePersistence) Close() error {
	close(fp.closeChan)
	fp.wg.Wait()

	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.currentFile != nil {
		err := fp.currentFile.Close()
		fp.currentFile = nil
		return err
	}

	return nil
}

// Stats returns persistence statistics
func (fp *FilePersistence) Stats() PersistenceStats {
	fp.mu.RLock()
	defer fp.mu.RUnlock()
	return fp.stats
}

// NullPersistence is a no-op persistence layer
type NullPersistence struct{}

func (n *NullPersistence) Write(ctx context.Context, records []*structpb.Struct) error {
	return nil
}

func (n *NullPersistence) Read(ctx context.Context, gameID string, limit int) ([]*structpb.Struct, error) {
	return nil, nil
}

func (n *NullPersistence) Delete(ctx context.Context, gameID string) error {
	return nil
}

func (n *NullPersistence) Close() error {
	return nil
}

func (n *NullPersistence) Stats() PersistenceStats {
	return PersistenceStats{}
}

// NewPersistenceLayer creates a persistence layer based on configuration
func NewPersistenceLayer(config PersistenceConfig, logger zerolog.Logger) (PersistenceLayer, error) {
	switch config.Type {
	case PersistenceTypeNone, "":
		return &NullPersistence{}, nil
	case PersistenceTypeFile:
		return NewFilePersistence(config, logger)
	default:
		return nil, fmt.Errorf("%q: %w", config.Type, ErrInvalidPersistenceType)
	}
}
