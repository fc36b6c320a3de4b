package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SolicitudRepository persists solicitudes and their stage rows. Records are
// append-only: creation plus field-level stage updates, never deletes.
type SolicitudRepository struct {
	db           *gorm.DB
	capacityGate string
}

func NewSolicitudRepository(db *gorm.DB, capacityGateID string) *SolicitudRepository {
	return &SolicitudRepository{db: db, capacityGate: capacityGateID}
}

// WithTx runs fn against a transaction-scoped copy of the repository. Used by
// the decision path so the fresh occupancy read and the stage update commit
// together.
func (r *SolicitudRepository) WithTx(ctx context.Context, fn func(txRepo *SolicitudRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SolicitudRepository{db: tx, capacityGate: r.capacityGate})
	})
}

// nextSequence allocates the per-site, per-day tracking counter atomically.
// The upsert keeps the counter collision-free under concurrent submissions
// and immune to row deletions elsewhere in the table.
func (r *SolicitudRepository) nextSequence(ctx context.Context, siteCode string, day time.Time) (int, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO slot_counters (site_code, day, value) VALUES (?, ?, 1)
		 ON CONFLICT (site_code, day) DO UPDATE SET value = slot_counters.value + 1
		 RETURNING value`,
		siteCode, day.Format("2006-01-02"),
	).Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("asignar correlativo de solicitud: %w", err)
	}
	return seq, nil
}

// Create appends a new solicitud with all of its stage rows in one
// transaction, allocating the tracking code {SiteCode}-{YYYYMMDD}-{NNNN} from
// the per-site, per-day counter.
func (r *SolicitudRepository) Create(ctx context.Context, s *entity.Solicitud, siteCode string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &SolicitudRepository{db: tx, capacityGate: r.capacityGate}
		seq, err := txRepo.nextSequence(ctx, siteCode, now)
		if err != nil {
			return err
		}
		s.TrackingCode = fmt.Sprintf("%s-%s-%04d", siteCode, now.Format("20060102"), seq)
		if err := tx.Create(s).Error; err != nil {
			return fmt.Errorf("registrar solicitud: %w", err)
		}
		return nil
	})
}

func (r *SolicitudRepository) preloadStages(q *gorm.DB) *gorm.DB {
	return q.Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("stage_approvals.sequence ASC")
	})
}

// FindByTrackingCode loads one solicitud with its stages in gate order.
func (r *SolicitudRepository) FindByTrackingCode(ctx context.Context, code string) (*entity.Solicitud, error) {
	var s entity.Solicitud
	err := r.preloadStages(r.db.WithContext(ctx)).
		Where("tracking_code = ?", code).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindByTrackingCodeForUpdate locks the solicitud row for the duration of the
// surrounding transaction so concurrent decisions on the same record
// serialize.
func (r *SolicitudRepository) FindByTrackingCodeForUpdate(ctx context.Context, code string) (*entity.Solicitud, error) {
	var s entity.Solicitud
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tracking_code = ?", code).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("solicitud_id = ?", s.ID).
		Order("sequence ASC").
		Find(&s.Stages).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// LockCapacity takes a transaction-scoped advisory lock on the (site, entry
// date) pair, serializing capacity-gated approvals that race for the last
// seat. Released automatically at commit/rollback.
func (r *SolicitudRepository) LockCapacity(ctx context.Context, site string, date time.Time) error {
	key := fmt.Sprintf("cupo:%s:%s", site, date.Format("2006-01-02"))
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

// List returns solicitudes filtered by optional site, estado of a gate, and
// entry date, newest first, stages preloaded.
func (r *SolicitudRepository) List(ctx context.Context, filters map[string]interface{}) ([]entity.Solicitud, error) {
	var list []entity.Solicitud
	query := r.preloadStages(r.db.WithContext(ctx))

	if site, ok := filters["site"].(string); ok && site != "" {
		query = query.Where("site = ?", site)
	}
	if date, ok := filters["entry_date"].(time.Time); ok && !date.IsZero() {
		query = query.Where("entry_date = ?", date.Format("2006-01-02"))
	}
	if company, ok := filters["company"].(string); ok && company != "" {
		query = query.Where("company = ?", company)
	}

	if err := query.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListBySiteEntryDate returns every record for a (site, entry date) pair with
// stages, the snapshot the capacity calculator consumes.
func (r *SolicitudRepository) ListBySiteEntryDate(ctx context.Context, site string, date time.Time) ([]entity.Solicitud, error) {
	var list []entity.Solicitud
	err := r.preloadStages(r.db.WithContext(ctx)).
		Where("site = ? AND entry_date = ?", site, date.Format("2006-01-02")).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListBySiteEntryRange returns records whose entry date falls inside
// [from, to], for open-date listings over a horizon.
func (r *SolicitudRepository) ListBySiteEntryRange(ctx context.Context, site string, from, to time.Time) ([]entity.Solicitud, error) {
	var list []entity.Solicitud
	err := r.preloadStages(r.db.WithContext(ctx)).
		Where("site = ? AND entry_date BETWEEN ? AND ?", site, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListPendingForGate returns records whose stage at the gate is still
// pending. The caller filters to the truly actionable ones with the workflow
// accessors; this query just narrows the candidate set.
func (r *SolicitudRepository) ListPendingForGate(ctx context.Context, gateID string) ([]entity.Solicitud, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.StageApproval{}).
		Select("solicitud_id").
		Where("gate_id = ? AND status = ?", gateID, entity.StageStatusPending).
		Find(&ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []entity.Solicitud{}, nil
	}

	var list []entity.Solicitud
	err = r.preloadStages(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("entry_date ASC, created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// CountOccupied is the fresh occupancy read for the decision path: approved
// records at the capacity gate for the (site, entry date) pair.
func (r *SolicitudRepository) CountOccupied(ctx context.Context, site string, date time.Time) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.StageApproval{}).
		Joins("JOIN solicitudes ON solicitudes.id = stage_approvals.solicitud_id").
		Where("stage_approvals.gate_id = ? AND stage_approvals.status = ?", r.capacityGate, entity.StageStatusApproved).
		Where("solicitudes.site = ? AND solicitudes.entry_date = ?", site, date.Format("2006-01-02")).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("contar cupos ocupados: %w", err)
	}
	return int(n), nil
}

// Occupied implements workflow.OccupancyReader.
func (r *SolicitudRepository) Occupied(ctx context.Context, site string, date time.Time) (int, error) {
	return r.CountOccupied(ctx, site, date)
}

// UpdateStageFields persists one decision: the four stage fields travel in a
// single UPDATE so the store never sees a state flip without its metadata.
func (r *SolicitudRepository) UpdateStageFields(ctx context.Context, solicitudID, gateID, status, approver, comment string, decidedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&entity.StageApproval{}).
		Where("solicitud_id = ? AND gate_id = ?", solicitudID, gateID).
		Updates(map[string]interface{}{
			"status":     status,
			"approver":   approver,
			"comment":    comment,
			"decided_at": decidedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("actualizar etapa %s: %w", gateID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return r.db.WithContext(ctx).Model(&entity.Solicitud{}).
		Where("id = ?", solicitudID).
		Update("updated_at", decidedAt).Error
}
