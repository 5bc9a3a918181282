package repositories

import (
	"github.com/anonto42/whoami-today/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FriendRequestRepository defines the interface for friend request data operations
type FriendRequestRepository interface {
	CreateFriendRequest(req *models.FriendRequest) error
	GetFriendRequestByID(id uint) (*models.FriendRequest, error)
	GetFriendRequestForUpdate(id uint) (*models.FriendRequest, error)
	GetFriendRequestBetween(requesterID, requesteeID uint) (*models.FriendRequest, error)
	LockBetween(a, b uint) ([]models.FriendRequest, error)
	GetReceivedFriendRequests(userID uint, page Page) ([]models.FriendRequest, error)
	GetSentFriendRequests(userID uint, page Page) ([]models.FriendRequest, error)
	SaveFriendRequest(req *models.FriendRequest) error
	SoftDeleteFriendRequest(req *models.FriendRequest) error
	HardDeleteBetween(a, b uint) (int64, error)
	DeleteStalePending() (int64, error)
}

type postgresFriendRequestRepository struct {
	db *gorm.DB
}

func NewPostgresFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &postgresFriendRequestRepository{db: db}
}

// CreateFriendRequest inserts req; a live request for the same pair fails with gorm.ErrDuplicatedKey.
func (r *postgresFriendRequestRepository) CreateFriendRequest(req *models.FriendRequest) error {
	return r.db.Create(req).Error
}

func (r *postgresFriendRequestRepository) GetFriendRequestByID(id uint) (*models.FriendRequest, error) {
	var req models.FriendRequest
	if err := r.db.First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *postgresFriendRequestRepository) GetFriendRequestForUpdate(id uint) (*models.FriendRequest, error) {
	var req models.FriendRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *postgresFriendRequestRepository) GetFriendRequestBetween(requesterID, requesteeID uint) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.Where("requester_id = ? AND requestee_id = ?", requesterID, requesteeID).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// LockBetween locks every live request between a and b, in either direction,
// in id order.
func (r *postgresFriendRequestRepository) LockBetween(a, b uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("(requester_id = ? AND requestee_id = ?) OR (requester_id = ? AND requestee_id = ?)", a, b, b, a).
		Order("id").Find(&requests).Error
	return requests, err
}

// GetReceivedFriendRequests lists pending requests addressed to userID
func (r *postgresFriendRequestRepository) GetReceivedFriendRequests(userID uint, page Page) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	db := r.db.Where("requestee_id = ? AND accepted IS NULL", userID).Order("created_at DESC")
	err := page.apply(db).Find(&requests).Error
	return requests, err
}

// GetSentFriendRequests lists pending requests sent by userID
func (r *postgresFriendRequestRepository) GetSentFriendRequests(userID uint, page Page) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	db := r.db.Where("requester_id = ? AND accepted IS NULL", userID).Order("created_at DESC")
	err := page.apply(db).Find(&requests).Error
	return requests, err
}

func (r *postgresFriendRequestRepository) SaveFriendRequest(req *models.FriendRequest) error {
	return r.db.Save(req).Error
}

func (r *postgresFriendRequestRepository) SoftDeleteFriendRequest(req *models.FriendRequest) error {
	return r.db.Delete(req).Error
}

// HardDeleteBetween removes every request row between a and b, in either direction.
func (r *postgresFriendRequestRepository) HardDeleteBetween(a, b uint) (int64, error) {
	res := r.db.Unscoped().
		Where("(requester_id = ? AND requestee_id = ?) OR (requester_id = ? AND requestee_id = ?)", a, b, b, a).
		Delete(&models.FriendRequest{})
	return res.RowsAffected, res.Error
}

// DeleteStalePending removes pending requests created before the requestee's
// last app version change.
func (r *postgresFriendRequestRepository) DeleteStalePending() (int64, error) {
	stale := r.db.Model(&models.User{}).Select("id").
		Where("users.id = friend_requests.requestee_id AND users.ver_changed_at IS NOT NULL AND friend_requests.created_at < users.ver_changed_at")
	res := r.db.Unscoped().Where("accepted IS NULL AND EXISTS (?)", stale).Delete(&models.FriendRequest{})
	return res.RowsAffected, res.Error
}

// FriendGroupRepository stores per-user named friend sets
type FriendGroupRepository interface {
	CreateGroup(group *models.FriendGroup) error
	GetGroup(ownerID, groupID uint) (*models.FriendGroup, error)
	ListGroups(ownerID uint) ([]models.FriendGroup, error)
	AddMembers(groupID uint, friendIDs []uint) error
	RemoveMember(groupID, friendID uint) error
	MemberIDs(ownerID uint, groupIDs []uint) ([]uint, error)
	RemoveFriendFromGroups(ownerID, friendID uint) error
}

type postgresFriendGroupRepository struct {
	db *gorm.DB
}

func NewPostgresFriendGroupRepository(db *gorm.DB) FriendGroupRepository {
	return &postgresFriendGroupRepository{db: db}
}

func (r *postgresFriendGroupRepository) CreateGroup(group *models.FriendGroup) error {
	return r.db.Create(group).Error
}

func (r *postgresFriendGroupRepository) GetGroup(ownerID, groupID uint) (*models.FriendGroup, error) {
	var group models.FriendGroup
	err := r.db.Preload("Members").Where("id = ? AND user_id = ?", groupID, ownerID).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *postgresFriendGroupRepository) ListGroups(ownerID uint) ([]models.FriendGroup, error) {
	var groups []models.FriendGroup
	err := r.db.Preload("Members").Where("user_id = ?", ownerID).Order("id ASC").Find(&groups).Error
	return groups, err
}

func (r *postgresFriendGroupRepository) AddMembers(groupID uint, friendIDs []uint) error {
	if len(friendIDs) == 0 {
		return nil
	}
	members := make([]models.FriendGroupMember, 0, len(friendIDs))
	for _, id := range friendIDs {
		members = append(members, models.FriendGroupMember{GroupID: groupID, FriendID: id})
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error
}

func (r *postgresFriendGroupRepository) RemoveMember(groupID, friendID uint) error {
	return r.db.Where("group_id = ? AND friend_id = ?", groupID, friendID).Delete(&models.FriendGroupMember{}).Error
}

// MemberIDs returns the distinct members of the owner's groups in groupIDs.
// Groups owned by someone else contribute nothing.
func (r *postgresFriendGroupRepository) MemberIDs(ownerID uint, groupIDs []uint) ([]uint, error) {
	var ids []uint
	if len(groupIDs) == 0 {
		return ids, nil
	}
	err := r.db.Model(&models.FriendGroupMember{}).
		Joins("JOIN friend_groups ON friend_groups.id = friend_group_members.group_id").
		Where("friend_groups.user_id = ? AND friend_groups.id IN ?", ownerID, groupIDs).
		Distinct().Pluck("friend_group_members.friend_id", &ids).Error
	return ids, err
}

func (r *postgresFriendGroupRepository) RemoveFriendFromGroups(ownerID, friendID uint) error {
	owned := r.db.Model(&models.FriendGroup{}).Select("id").Where("user_id = ?", ownerID)
	return r.db.Where("friend_id = ? AND group_id IN (?)", friendID, owned).Delete(&models.FriendGroupMember{}).Error
}
