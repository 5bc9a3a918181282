package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConnectionRepository stores canonical (low, high) edges. Every lookup
// canonicalizes its arguments first.
type ConnectionRepository interface {
	CreateConnection(conn *models.Connection) error
	GetConnection(a, b uint) (*models.Connection, error)
	GetConnectionForUpdate(a, b uint) (*models.Connection, error)
	SaveConnection(conn *models.Connection) error
	SoftDeleteConnection(conn *models.Connection) error
	SoftDeleteAllForUser(userID uint) ([]models.Connection, error)
	ListConnections(userID uint) ([]models.Connection, error)
	ConnectionsWith(userID uint, others []uint) (map[uint]*models.Connection, error)
}

type postgresConnectionRepository struct {
	db *gorm.DB
}

func NewPostgresConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &postgresConnectionRepository{db: db}
}

// CreateConnection inserts conn as given. Non-canonical rows are rejected by the model hook.
func (r *postgresConnectionRepository) CreateConnection(conn *models.Connection) error {
	return r.db.Create(conn).Error
}

func (r *postgresConnectionRepository) GetConnection(a, b uint) (*models.Connection, error) {
	low, high := models.CanonicalPair(a, b)
	var conn models.Connection
	if err := r.db.Where("user_low_id = ? AND user_high_id = ?", low, high).First(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetConnectionForUpdate locks the live edge row until the transaction ends.
func (r *postgresConnectionRepository) GetConnectionForUpdate(a, b uint) (*models.Connection, error) {
	low, high := models.CanonicalPair(a, b)
	var conn models.Connection
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_low_id = ? AND user_high_id = ?", low, high).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *postgresConnectionRepository) SaveConnection(conn *models.Connection) error {
	return r.db.Save(conn).Error
}

func (r *postgresConnectionRepository) SoftDeleteConnection(conn *models.Connection) error {
	return r.db.Delete(conn).Error
}

// SoftDeleteAllForUser removes every live edge of userID and returns them.
func (r *postgresConnectionRepository) SoftDeleteAllForUser(userID uint) ([]models.Connection, error) {
	conns, err := r.ListConnections(userID)
	if err != nil || len(conns) == 0 {
		return conns, err
	}
	ids := make([]uint, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.ID)
	}
	return conns, r.db.Where("id IN ?", ids).Delete(&models.Connection{}).Error
}

func (r *postgresConnectionRepository) ListConnections(userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	err := r.db.Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("created_at DESC").Find(&conns).Error
	return conns, err
}

// ConnectionsWith returns the live edges between userID and each of others,
// keyed by the other endpoint.
func (r *postgresConnectionRepository) ConnectionsWith(userID uint, others []uint) (map[uint]*models.Connection, error) {
	out := make(map[uint]*models.Connection, len(others))
	if len(others) == 0 {
		return out, nil
	}
	var conns []models.Connection
	err := r.db.Where("(user_low_id = ? AND user_high_id IN ?) OR (user_high_id = ? AND user_low_id IN ?)",
		userID, others, userID, others).Find(&conns).Error
	if err != nil {
		return nil, err
	}
	for i := range conns {
		out[conns[i].Other(userID)] = &conns[i]
	}
	return out, nil
}
