package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRepository stores user reports (blocks) and content reports.
type ReportRepository interface {
	ReportUser(report *models.UserReport) error
	ReportContent(report *models.ContentReport) error
	BlockedIDs(userID uint) ([]uint, error)
	Blocking(a, b uint) (aBlocksB bool, bBlocksA bool, err error)
	ReportedRefs(userID uint) ([]models.Ref, error)
	ReporterIDs(ref models.Ref) ([]uint, error)
}

type postgresReportRepository struct {
	db *gorm.DB
}

func NewPostgresReportRepository(db *gorm.DB) ReportRepository {
	return &postgresReportRepository{db: db}
}

// ReportUser is idempotent per (reporter, reported).
func (r *postgresReportRepository) ReportUser(report *models.UserReport) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(report).Error
}

// ReportContent is idempotent per (reporter, kind, id).
func (r *postgresReportRepository) ReportContent(report *models.ContentReport) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(report).Error
}

// BlockedIDs returns users userID blocked plus users who blocked userID.
func (r *postgresReportRepository) BlockedIDs(userID uint) ([]uint, error) {
	var blocked, blockers []uint
	if err := r.db.Model(&models.UserReport{}).Where("reporter_id = ?", userID).Pluck("reported_id", &blocked).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.UserReport{}).Where("reported_id = ?", userID).Pluck("reporter_id", &blockers).Error; err != nil {
		return nil, err
	}
	return append(blocked, blockers...), nil
}

func (r *postgresReportRepository) Blocking(a, b uint) (bool, bool, error) {
	var reports []models.UserReport
	err := r.db.Where("(reporter_id = ? AND reported_id = ?) OR (reporter_id = ? AND reported_id = ?)", a, b, b, a).
		Find(&reports).Error
	if err != nil {
		return false, false, err
	}
	var aBlocksB, bBlocksA bool
	for _, rep := range reports {
		if rep.ReporterID == a {
			aBlocksB = true
		} else {
			bBlocksA = true
		}
	}
	return aBlocksB, bBlocksA, nil
}

func (r *postgresReportRepository) ReportedRefs(userID uint) ([]models.Ref, error) {
	var reports []models.ContentReport
	if err := r.db.Where("reporter_id = ?", userID).Find(&reports).Error; err != nil {
		return nil, err
	}
	refs := make([]models.Ref, 0, len(reports))
	for i := range reports {
		refs = append(refs, reports[i].ContentRef())
	}
	return refs, nil
}

// ReporterIDs lists users who reported ref.
func (r *postgresReportRepository) ReporterIDs(ref models.Ref) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ContentReport{}).Where("kind = ? AND content_id = ?", ref.Kind, ref.ID).
		Pluck("reporter_id", &ids).Error
	return ids, err
}
