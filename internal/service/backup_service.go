package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/observability"
	"github.com/noah-isme/counsel-vault/internal/repository"
	"github.com/noah-isme/counsel-vault/pkg/events"
)

// BackupStampLayout formats the date-stamped key of an automatic backup.
const BackupStampLayout = "20060102T150405Z"

// PreRestoreStamp is the key of the safety copy taken before every restore.
const PreRestoreStamp = "pre-restore"

const (
	metaBackupEnabled = "auto_backup.enabled"
	metaLastBackup    = "auto_backup.last"
)

// BackupConfig tunes the automatic backup scheduler.
type BackupConfig struct {
	DefaultEnabled bool
	Interval       time.Duration
	Retention      int
	Timeout        time.Duration
}

// BackupService materialises dated snapshots and restores them.
type BackupService interface {
	// Start launches the periodic scheduler; it stops when ctx is cancelled.
	Start(ctx context.Context)
	// Tick runs one scheduled backup if automatic backups are enabled.
	Tick(ctx context.Context) (bool, error)
	RunOnce(ctx context.Context) (dto.BackupInfo, error)
	SetEnabled(ctx context.Context, enabled bool) error
	Enabled(ctx context.Context) (bool, error)
	LastBackup(ctx context.Context) (*dto.LastBackupInfo, error)
	ListAvailableBackups(ctx context.Context) ([]dto.BackupInfo, error)
	RestoreFromAutoBackup(ctx context.Context, at time.Time) (dto.SnapshotReport, error)
	RestoreStamp(ctx context.Context, stamp string) (dto.SnapshotReport, error)
	CapturePreRestore(ctx context.Context) error
	Status(ctx context.Context) (dto.BackupStatusResponse, error)
}

type backupService struct {
	snapshots SnapshotService
	backups   repository.BackupRepository
	meta      repository.MetaRepository
	cfg       BackupConfig
	events    events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewBackupService constructs the automatic backup scheduler.
func NewBackupService(snapshots SnapshotService, backups repository.BackupRepository, meta repository.MetaRepository, cfg BackupConfig, publisher events.Publisher, logger zerolog.Logger) BackupService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &backupService{
		snapshots: snapshots,
		backups:   backups,
		meta:      meta,
		cfg:       cfg,
		events:    publisher,
		logger:    logger.With().Str("component", "backup_service").Logger(),
		now:       time.Now,
	}
}

func (s *backupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	s.logger.Info().Dur("interval", s.cfg.Interval).Int("retention", s.cfg.Retention).Msg("backup scheduler started")

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("backup scheduler stopped")
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
				_, err := s.Tick(tickCtx)
				cancel()
				if err != nil {
					s.logger.Error().Err(err).Msg("scheduled backup failed")
				}
			}
		}
	}()
}

func (s *backupService) Tick(ctx context.Context) (bool, error) {
	enabled, err := s.Enabled(ctx)
	if err != nil {
		return false, err
	}
	if !enabled {
		observability.AutoBackups().WithLabelValues("skipped").Inc()
		return false, nil
	}

	if _, err := s.RunOnce(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *backupService) RunOnce(ctx context.Context) (info dto.BackupInfo, err error) {
	ctx, span := observability.Tracer("service").Start(ctx, "backup.run")
	defer func() {
		if err != nil {
			observability.AutoBackups().WithLabelValues("failure").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "backup failed")
		}
		span.End()
	}()

	takenAt := s.now().UTC().Truncate(time.Second)
	stamp, err := s.freeStamp(ctx, takenAt.Format(BackupStampLayout))
	if err != nil {
		return dto.BackupInfo{}, err
	}
	entry, err := s.capture(ctx, stamp, models.BackupKindAuto, takenAt)
	if err != nil {
		return dto.BackupInfo{}, err
	}

	last := dto.LastBackupInfo{Stamp: entry.Stamp, TakenAt: entry.TakenAt, Records: entry.Records}
	encoded, err := json.Marshal(last)
	if err != nil {
		return dto.BackupInfo{}, fmt.Errorf("encode last backup marker: %w", err)
	}
	if err := s.meta.Set(ctx, metaLastBackup, string(encoded)); err != nil {
		return dto.BackupInfo{}, err
	}

	if err := s.prune(ctx); err != nil {
		return dto.BackupInfo{}, err
	}

	observability.AutoBackups().WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("stamp", entry.Stamp), attribute.Int("records", entry.Records))
	s.logger.Info().Str("stamp", entry.Stamp).Int("records", entry.Records).Msg("automatic backup stored")
	s.publish(ctx, events.BackupCreated, last)

	return dto.BackupInfo{Stamp: entry.Stamp, TakenAt: entry.TakenAt, Records: entry.Records}, nil
}

func (s *backupService) SetEnabled(ctx context.Context, enabled bool) error {
	if err := s.meta.Set(ctx, metaBackupEnabled, strconv.FormatBool(enabled)); err != nil {
		return err
	}
	s.logger.Info().Bool("enabled", enabled).Msg("automatic backups toggled")
	return nil
}

func (s *backupService) Enabled(ctx context.Context) (bool, error) {
	value, err := s.meta.Get(ctx, metaBackupEnabled)
	if errors.Is(err, repository.ErrNotFound) {
		return s.cfg.DefaultEnabled, nil
	}
	if err != nil {
		return false, err
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		s.logger.Warn().Str("value", value).Msg("ignoring malformed backup flag")
		return s.cfg.DefaultEnabled, nil
	}
	return enabled, nil
}

func (s *backupService) LastBackup(ctx context.Context) (*dto.LastBackupInfo, error) {
	value, err := s.meta.Get(ctx, metaLastBackup)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var last dto.LastBackupInfo
	if err := json.Unmarshal([]byte(value), &last); err != nil {
		s.logger.Warn().Err(err).Msg("ignoring malformed last backup marker")
		return nil, nil
	}
	return &last, nil
}

func (s *backupService) ListAvailableBackups(ctx context.Context) ([]dto.BackupInfo, error) {
	entries, err := s.backups.List(ctx, models.BackupKindAuto)
	if err != nil {
		return nil, err
	}

	infos := make([]dto.BackupInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, dto.BackupInfo{Stamp: entry.Stamp, TakenAt: entry.TakenAt, Records: entry.Records})
	}
	return infos, nil
}

func (s *backupService) RestoreFromAutoBackup(ctx context.Context, at time.Time) (dto.SnapshotReport, error) {
	return s.restore(ctx, at.UTC().Format(BackupStampLayout), models.BackupKindAuto)
}

func (s *backupService) RestoreStamp(ctx context.Context, stamp string) (dto.SnapshotReport, error) {
	return s.restore(ctx, stamp, "")
}

func (s *backupService) CapturePreRestore(ctx context.Context) error {
	entry, err := s.capture(ctx, PreRestoreStamp, models.BackupKindPreRestore, s.now().UTC().Truncate(time.Second))
	if err != nil {
		return fmt.Errorf("capture pre-restore copy: %w", err)
	}
	s.logger.Info().Int("records", entry.Records).Msg("pre-restore copy stored")
	return nil
}

func (s *backupService) Status(ctx context.Context) (dto.BackupStatusResponse, error) {
	enabled, err := s.Enabled(ctx)
	if err != nil {
		return dto.BackupStatusResponse{}, err
	}
	last, err := s.LastBackup(ctx)
	if err != nil {
		return dto.BackupStatusResponse{}, err
	}
	backups, err := s.ListAvailableBackups(ctx)
	if err != nil {
		return dto.BackupStatusResponse{}, err
	}
	return dto.BackupStatusResponse{Enabled: enabled, Last: last, Backups: backups}, nil
}

// restore loads the stored document for stamp. kind, when set, restricts the
// lookup to one backup kind.
func (s *backupService) restore(ctx context.Context, stamp, kind string) (dto.SnapshotReport, error) {
	ctx, span := observability.Tracer("service").Start(ctx, "backup.restore")
	defer span.End()
	span.SetAttributes(attribute.String("stamp", stamp))

	entry, err := s.backups.Get(ctx, stamp)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && kind != "" && entry.Kind != kind) {
		return dto.SnapshotReport{}, fmt.Errorf("%w: %s", ErrBackupNotFound, stamp)
	}
	if err != nil {
		span.RecordError(err)
		return dto.SnapshotReport{}, err
	}

	if err := s.snapshots.Validate(entry.Document); err != nil {
		span.RecordError(err)
		return dto.SnapshotReport{}, err
	}

	if entry.Kind != models.BackupKindPreRestore {
		if err := s.CapturePreRestore(ctx); err != nil {
			span.RecordError(err)
			return dto.SnapshotReport{}, err
		}
	}

	report, err := s.snapshots.ImportDocument(ctx, entry.Document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "restore failed")
		return dto.SnapshotReport{}, err
	}

	s.logger.Info().Str("stamp", stamp).Int("records", report.Total()).Msg("backup restored")
	s.publish(ctx, events.BackupRestored, map[string]any{"stamp": stamp, "report": report})
	return report, nil
}

func (s *backupService) capture(ctx context.Context, stamp, kind string, takenAt time.Time) (models.BackupEntry, error) {
	snapshot, err := s.snapshots.Export(ctx)
	if err != nil {
		return models.BackupEntry{}, err
	}
	document, err := EncodeSnapshot(snapshot)
	if err != nil {
		return models.BackupEntry{}, err
	}

	entry := models.BackupEntry{
		Stamp:    stamp,
		Kind:     kind,
		TakenAt:  takenAt,
		Records:  snapshot.RecordCount(),
		Document: datatypes.JSON(document),
	}
	if err := s.backups.Save(ctx, &entry); err != nil {
		return models.BackupEntry{}, err
	}
	return entry, nil
}

// freeStamp returns base, or base with a numeric suffix when a backup was
// already taken within the same second.
func (s *backupService) freeStamp(ctx context.Context, base string) (string, error) {
	stamp := base
	for n := 2; ; n++ {
		_, err := s.backups.Get(ctx, stamp)
		if errors.Is(err, repository.ErrNotFound) {
			return stamp, nil
		}
		if err != nil {
			return "", err
		}
		stamp = fmt.Sprintf("%s-%d", base, n)
	}
}

// prune evicts the oldest automatic backups beyond the retention cap.
func (s *backupService) prune(ctx context.Context) error {
	entries, err := s.backups.List(ctx, models.BackupKindAuto)
	if err != nil {
		return err
	}

	retained := len(entries)
	if retained > s.cfg.Retention {
		evicted := make([]string, 0, retained-s.cfg.Retention)
		for _, entry := range entries[s.cfg.Retention:] {
			evicted = append(evicted, entry.Stamp)
		}
		if err := s.backups.Delete(ctx, evicted...); err != nil {
			return err
		}
		retained = s.cfg.Retention
		s.logger.Info().Strs("evicted", evicted).Msg("old automatic backups evicted")
	}

	observability.BackupsRetained().Set(float64(retained))
	return nil
}

func (s *backupService) publish(ctx context.Context, event string, payload any) {
	if err := s.events.Publish(ctx, event, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("failed to publish event")
	}
}
