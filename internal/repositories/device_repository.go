package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository stores push registrations.
type DeviceRepository interface {
	UpsertDevice(device *models.Device) error
	ActiveDevices(userID uint) ([]models.Device, error)
	DeactivateDevice(registrationID string) error
	DeactivateUserDevices(userID uint) error
}

type postgresDeviceRepository struct {
	db *gorm.DB
}

func NewPostgresDeviceRepository(db *gorm.DB) DeviceRepository {
	return &postgresDeviceRepository{db: db}
}

// UpsertDevice keys on the registration id; a token moving to another user is reassigned and reactivated.
func (r *postgresDeviceRepository) UpsertDevice(device *models.Device) error {
	device.Active = true
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "registration_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "language", "active", "updated_at"}),
	}).Create(device).Error
}

func (r *postgresDeviceRepository) ActiveDevices(userID uint) ([]models.Device, error) {
	var devices []models.Device
	err := r.db.Where("user_id = ? AND active = ?", userID, true).Order("id ASC").Find(&devices).Error
	return devices, err
}

func (r *postgresDeviceRepository) DeactivateDevice(registrationID string) error {
	return r.db.Model(&models.Device{}).Where("registration_id = ?", registrationID).Update("active", false).Error
}

func (r *postgresDeviceRepository) DeactivateUserDevices(userID uint) error {
	return r.db.Model(&models.Device{}).Where("user_id = ?", userID).Update("active", false).Error
}
