package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"lodyland/pkg/logger"
)

const backupPrefix = "lodyland_"

// BackupManager handles database backup and recovery operations
type BackupManager struct {
	db        *DB
	config    *BackupConfig
	logger    *logger.ColoredLogger
	scheduler *BackupScheduler
}

// BackupConfig holds backup configuration
type BackupConfig struct {
	BackupDir          string
	MaxBackups         int
	CompressionEnabled bool

	AutoBackup     bool
	BackupInterval time.Duration

	VerifyAfterBackup bool
}

// BackupInfo represents information about a backup
type BackupInfo struct {
	Filename     string    `json:"filename"`
	FullPath     string    `json:"full_path"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
	DatabaseSize int64     `json:"database_size"`
	Compressed   bool      `json:"compressed"`
	Verified     bool      `json:"verified"`
	BackupType   string    `json:"backup_type"` // manual, scheduled, pre-restore
	Description  string    `json:"description"`
}

// BackupScheduler handles automatic backup scheduling
type BackupScheduler struct {
	manager  *BackupManager
	logger   *logger.ColoredLogger
	stopChan chan struct{}
	running  bool
}

// RestoreOptions defines options for database restoration
type RestoreOptions struct {
	BackupPath         string
	TargetPath         string
	VerifyAfterRestore bool
	Force              bool // overwrite an existing target
}

// DefaultBackupConfig returns default backup configuration
func DefaultBackupConfig(dataDir string) *BackupConfig {
	return &BackupConfig{
		BackupDir:          filepath.Join(dataDir, "backups"),
		MaxBackups:         20,
		CompressionEnabled: true,
		AutoBackup:         false,
		BackupInterval:     6 * time.Hour,
		VerifyAfterBackup:  true,
	}
}

// NewBackupManager creates a new backup manager
func NewBackupManager(db *DB, config *BackupConfig) *BackupManager {
	bm := &BackupManager{
		db:     db,
		config: config,
		logger: logger.NewComponentLogger("BACKUP", logger.ColorBrightPurple),
	}

	if err := os.MkdirAll(config.BackupDir, 0755); err != nil {
		bm.logger.Error("Failed to create backup directory: %v", err)
	}

	if config.AutoBackup && config.BackupInterval > 0 {
		bm.scheduler = &BackupScheduler{
			manager:  bm,
			logger:   logger.NewComponentLogger("SCHEDULER", logger.ColorPurple),
			stopChan: make(chan struct{}),
		}
	}

	return bm
}

// Start begins automatic backup scheduling
func (bm *BackupManager) Start() {
	if bm.scheduler != nil && !bm.scheduler.running {
		bm.scheduler.running = true
		go bm.scheduler.start()
		bm.logger.Info("Backup scheduler started")
	}
}

// Stop stops automatic backup scheduling
func (bm *BackupManager) Stop() {
	if bm.scheduler != nil && bm.scheduler.running {
		close(bm.scheduler.stopChan)
		bm.scheduler.running = false
		bm.logger.Info("Backup scheduler stopped")
	}
}

// CreateBackup creates a snapshot of the live database with VACUUM INTO,
// zstd-compressed when enabled
func (bm *BackupManager) CreateBackup(ctx context.Context, description, backupType string) (*BackupInfo, error) {
	start := time.Now()

	filename := fmt.Sprintf("%s%s.db", backupPrefix, start.UTC().Format("20060102_150405.000"))
	if bm.config.CompressionEnabled {
		filename += ".zst"
	}
	backupPath := filepath.Join(bm.config.BackupDir, filename)

	bm.logger.Info("Creating backup: %s", filename)

	var dbSize int64
	if sizes, err := bm.db.GetDatabaseSize(ctx); err == nil {
		dbSize = sizes["total_size"]
	}

	var backupSize int64
	var err error
	if bm.config.CompressionEnabled {
		backupSize, err = bm.createCompressedBackup(ctx, backupPath)
	} else {
		backupSize, err = bm.createRegularBackup(ctx, backupPath)
	}
	if err != nil {
		return nil, fmt.Errorf("backup creation failed: %w", err)
	}

	info := &BackupInfo{
		Filename:     filename,
		FullPath:     backupPath,
		Size:         backupSize,
		CreatedAt:    start,
		DatabaseSize: dbSize,
		Compressed:   bm.config.CompressionEnabled,
		BackupType:   backupType,
		Description:  description,
	}

	if bm.config.VerifyAfterBackup {
		if err := bm.verifyBackup(ctx, info); err != nil {
			bm.logger.Error("Backup verification failed: %v", err)
		} else {
			info.Verified = true
		}
	}

	bm.logger.Info("Backup completed: %s (%d -> %d bytes, %v)",
		filename, dbSize, backupSize, time.Since(start))

	if err := bm.cleanupOldBackups(); err != nil {
		bm.logger.Warn("Failed to cleanup old backups: %v", err)
	}

	return info, nil
}

// RestoreBackup writes a backup to TargetPath. The target must not be the
// live database of a running server.
func (bm *BackupManager) RestoreBackup(ctx context.Context, options RestoreOptions) error {
	bm.logger.Info("Starting database restore from: %s", options.BackupPath)

	if _, err := os.Stat(options.BackupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", options.BackupPath)
	}
	if options.TargetPath == "" {
		return fmt.Errorf("restore target path is required")
	}
	if _, err := os.Stat(options.TargetPath); err == nil && !options.Force {
		return fmt.Errorf("target database exists and force=false: %s", options.TargetPath)
	}

	if err := copyBackup(options.BackupPath, options.TargetPath); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	if options.VerifyAfterRestore {
		if err := verifyDatabaseFile(ctx, options.TargetPath); err != nil {
			return fmt.Errorf("restored database verification failed: %w", err)
		}
	}

	bm.logger.Info("Database restore completed successfully")
	return nil
}

// ListBackups returns available backups, newest first
func (bm *BackupManager) ListBackups() ([]*BackupInfo, error) {
	files, err := os.ReadDir(bm.config.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []*BackupInfo
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), backupPrefix) {
			continue
		}
		fileInfo, err := file.Info()
		if err != nil {
			continue
		}
		backups = append(backups, &BackupInfo{
			Filename:   file.Name(),
			FullPath:   filepath.Join(bm.config.BackupDir, file.Name()),
			Size:       fileInfo.Size(),
			CreatedAt:  fileInfo.ModTime(),
			Compressed: strings.HasSuffix(file.Name(), ".zst"),
		})
	}

	// filenames carry the timestamp
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Filename > backups[j].Filename
	})
	return backups, nil
}

// DeleteBackup deletes a specific backup
func (bm *BackupManager) DeleteBackup(filename string) error {
	if filepath.Base(filename) != filename {
		return fmt.Errorf("invalid backup name: %s", filename)
	}
	backupPath := filepath.Join(bm.config.BackupDir, filename)
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup not found: %s", filename)
	}
	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	bm.logger.Info("Deleted backup: %s", filename)
	return nil
}

func (bm *BackupManager) createRegularBackup(ctx context.Context, backupPath string) (int64, error) {
	if _, err := bm.db.ExecContext(ctx, "VACUUM INTO ?", backupPath); err != nil {
		return 0, fmt.Errorf("VACUUM INTO failed: %w", err)
	}
	fileInfo, err := os.Stat(backupPath)
	if err != nil {
		return 0, fmt.Errorf("failed to get backup file info: %w", err)
	}
	return fileInfo.Size(), nil
}

func (bm *BackupManager) createCompressedBackup(ctx context.Context, backupPath string) (int64, error) {
	tempPath := backupPath + ".tmp"
	defer os.Remove(tempPath)

	if _, err := bm.createRegularBackup(ctx, tempPath); err != nil {
		return 0, err
	}

	src, err := os.Open(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open temp backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create compressed backup: %w", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return 0, fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish compressed backup: %w", err)
	}

	fileInfo, err := dst.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to get backup file info: %w", err)
	}
	return fileInfo.Size(), nil
}

// copyBackup copies a backup file to target, decompressing .zst files
func copyBackup(backupPath, targetPath string) error {
	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("failed to create target file: %w", err)
	}
	defer dst.Close()

	var r io.Reader = src
	if strings.HasSuffix(backupPath, ".zst") {
		dec, err := zstd.NewReader(src)
		if err != nil {
			return fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("failed to copy backup: %w", err)
	}
	return nil
}

// verifyBackup restores the backup into a scratch file and runs an
// integrity check on it
func (bm *BackupManager) verifyBackup(ctx context.Context, backup *BackupInfo) error {
	path := backup.FullPath
	if backup.Compressed {
		scratch, err := os.CreateTemp(bm.config.BackupDir, "verify-*.db")
		if err != nil {
			return fmt.Errorf("failed to create scratch file: %w", err)
		}
		scratch.Close()
		defer os.Remove(scratch.Name())

		if err := copyBackup(backup.FullPath, scratch.Name()); err != nil {
			return err
		}
		path = scratch.Name()
	}
	return verifyDatabaseFile(ctx, path)
}

func verifyDatabaseFile(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported: %s", result)
	}
	return nil
}

func (bm *BackupManager) cleanupOldBackups() error {
	if bm.config.MaxBackups <= 0 {
		return nil
	}
	backups, err := bm.ListBackups()
	if err != nil {
		return err
	}
	for i := bm.config.MaxBackups; i < len(backups); i++ {
		if err := bm.DeleteBackup(backups[i].Filename); err != nil {
			bm.logger.Warn("Failed to delete old backup %s: %v", backups[i].Filename, err)
		}
	}
	return nil
}

func (bs *BackupScheduler) start() {
	ticker := time.NewTicker(bs.manager.config.BackupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bs.performScheduledBackup()
		case <-bs.stopChan:
			return
		}
	}
}

func (bs *BackupScheduler) performScheduledBackup() {
	description := fmt.Sprintf("Scheduled backup - %s", time.Now().Format("2006-01-02 15:04:05"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := bs.manager.CreateBackup(ctx, description, "scheduled"); err != nil {
		bs.logger.Error("Scheduled backup failed: %v", err)
	}
}
