package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

const maxUsernameLength = 30

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]+$`)

// UserService owns accounts, friend sets, friend groups and reports.
type UserService struct {
	store    *repositories.Store
	notifier *Notifier
	validate *validator.Validate
	closer   *roomCloser
}

func NewUserService(store *repositories.Store, notifier *Notifier) *UserService {
	return &UserService{store: store, notifier: notifier, validate: validator.New()}
}

func usernameFormat(username string) error {
	switch {
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return apperrors.E(apperrors.LongUsername)
	case !usernamePattern.MatchString(username):
		return apperrors.E(apperrors.InvalidUsername)
	}
	return nil
}

func checkUsername(st *repositories.Store, username string) error {
	if err := usernameFormat(username); err != nil {
		return err
	}
	taken, err := st.Users.UsernameTaken(username)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.E(apperrors.ExistingUsername)
	}
	return nil
}

func strongPassword(pw string) bool {
	if utf8.RuneCountInString(pw) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// CheckUsername reports whether username could be registered.
func (s *UserService) CheckUsername(ctx context.Context, username string) error {
	return checkUsername(s.store.WithContext(ctx), username)
}

// CheckEmail reports whether email could be registered.
func (s *UserService) CheckEmail(ctx context.Context, email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return apperrors.Wrap(apperrors.InvalidEmail, err)
	}
	taken, err := s.store.WithContext(ctx).Users.EmailTaken(email)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.E(apperrors.ExistingEmail)
	}
	return nil
}

// Signup creates an account and its default friend group.
func (s *UserService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	if err := s.CheckUsername(ctx, req.Username); err != nil {
		return nil, err
	}
	if err := s.CheckEmail(ctx, req.Email); err != nil {
		return nil, err
	}
	if !strongPassword(req.Password) {
		return nil, apperrors.E(apperrors.WeakPassword)
	}
	if req.Timezone != "" {
		if err := s.validate.Var(req.Timezone, "timezone"); err != nil {
			return nil, apperrors.New(apperrors.UnknownField, "timezone")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: req.Username,
		Email:    strings.ToLower(req.Email),
		Password: string(hash),
		Language: models.ParseLanguage(req.Language),
		Timezone: req.Timezone,
		IsActive: true,
	}
	if user.Timezone == "" {
		user.Timezone = "Asia/Seoul"
	}
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Users.CreateUser(user); err != nil {
			if repositories.IsDuplicate(err) {
				return apperrors.Wrap(apperrors.ExistingUsername, err)
			}
			return err
		}
		return tx.FriendGroups.CreateGroup(&models.FriendGroup{UserID: user.ID, Name: models.DefaultFriendGroupName})
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("user signed up", zap.Uint("user_id", user.ID))
	return user, nil
}

// Login checks credentials and returns the live, active user.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.WithContext(ctx).Users.GetUserByUsername(username)
	if err != nil {
		return nil, notFoundAs(err, apperrors.NoUsername)
	}
	if !user.IsActive {
		return nil, apperrors.E(apperrors.InactiveUser)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.Wrap(apperrors.WrongPassword, err)
	}
	return user, nil
}

// Get returns a live user, refusing across a block.
func (s *UserService) Get(ctx context.Context, viewerID, userID uint) (*models.User, error) {
	st := s.store.WithContext(ctx)
	user, err := st.Users.GetUserByID(userID)
	if err != nil {
		return nil, notFoundAs(err, apperrors.NotFound)
	}
	if viewerID != userID {
		if err := checkBlocks(st, viewerID, userID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Update patches the caller's profile.
func (s *UserService) Update(ctx context.Context, userID uint, req models.UpdateUserRequest) (*models.User, error) {
	var user *models.User
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		if user, err = tx.Users.GetUserByID(userID); err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if req.Username != nil && *req.Username != user.Username {
			check := checkUsername
			if strings.EqualFold(*req.Username, user.Username) {
				check = func(_ *repositories.Store, name string) error { return usernameFormat(name) }
			}
			if err := check(tx, *req.Username); err != nil {
				return err
			}
			user.Username = *req.Username
		}
		if req.Bio != nil {
			user.Bio = *req.Bio
		}
		if req.Pronouns != nil {
			user.Pronouns = *req.Pronouns
		}
		if req.ProfileImage != nil {
			user.ProfileImage = *req.ProfileImage
		}
		if req.Language != nil {
			user.Language = models.ParseLanguage(*req.Language)
		}
		if req.NotiTime != nil {
			if *req.NotiTime == "" {
				user.NotiTime = nil
			} else {
				t := *req.NotiTime
				user.NotiTime = &t
			}
		}
		if req.Timezone != nil {
			if err := s.validate.Var(*req.Timezone, "timezone"); err != nil {
				return apperrors.New(apperrors.UnknownField, "timezone")
			}
			user.Timezone = *req.Timezone
		}
		if err := tx.Users.UpdateUser(user); err != nil {
			if repositories.IsDuplicate(err) {
				return apperrors.Wrap(apperrors.ExistingUsername, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.ForgetName(userID)
	return user, nil
}

// Search finds users by username substring, hiding the caller and anyone
// on either side of a block.
func (s *UserService) Search(ctx context.Context, userID uint, query string, page repositories.Page) ([]models.UserCompact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserCompact{}, nil
	}
	st := s.store.WithContext(ctx)
	blocked, err := st.Reports.BlockedIDs(userID)
	if err != nil {
		return nil, err
	}
	users, err := st.Users.SearchUsers(query, append(blocked, userID), page)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserCompact, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToCompact())
	}
	return out, nil
}

// DeleteSelf soft-deletes the account, its devices and its connections.
func (s *UserService) DeleteSelf(ctx context.Context, userID uint) error {
	var rooms []uint
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Users.SoftDeleteUser(userID); err != nil {
			return err
		}
		if err := tx.Devices.DeactivateUserDevices(userID); err != nil {
			return err
		}
		conns, err := tx.Connections.SoftDeleteAllForUser(userID)
		if err != nil {
			return err
		}
		for i := range conns {
			roomID, err := unfriendCascade(tx, &conns[i])
			if err != nil {
				return err
			}
			if roomID != 0 {
				rooms = append(rooms, roomID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.closer.close(rooms...)
	return nil
}

func requireConnected(st *repositories.Store, userID, friendID uint) error {
	if _, err := st.Connections.GetConnection(userID, friendID); err != nil {
		return notFoundAs(err, apperrors.NotFriend)
	}
	return nil
}

func (s *UserService) AddFavorite(ctx context.Context, userID, friendID uint) error {
	st := s.store.WithContext(ctx)
	if err := requireConnected(st, userID, friendID); err != nil {
		return err
	}
	return st.Users.AddFavorite(userID, friendID)
}

func (s *UserService) RemoveFavorite(ctx context.Context, userID, friendID uint) error {
	return s.store.WithContext(ctx).Users.RemoveFavorite(userID, friendID)
}

func (s *UserService) AddHidden(ctx context.Context, userID, friendID uint) error {
	st := s.store.WithContext(ctx)
	if err := requireConnected(st, userID, friendID); err != nil {
		return err
	}
	return st.Users.AddHidden(userID, friendID)
}

func (s *UserService) RemoveHidden(ctx context.Context, userID, friendID uint) error {
	return s.store.WithContext(ctx).Users.RemoveHidden(userID, friendID)
}

// CreateGroup creates a named friend group. Every member must be connected.
func (s *UserService) CreateGroup(ctx context.Context, userID uint, req models.CreateFriendGroupRequest) (*models.FriendGroup, error) {
	if blank(req.Name) {
		return nil, apperrors.E(apperrors.EmptyContent)
	}
	group := &models.FriendGroup{UserID: userID, Name: strings.TrimSpace(req.Name)}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		for _, id := range req.MemberIDs {
			if err := requireConnected(tx, userID, id); err != nil {
				return err
			}
		}
		if err := tx.FriendGroups.CreateGroup(group); err != nil {
			return err
		}
		return tx.FriendGroups.AddMembers(group.ID, uniq(req.MemberIDs))
	})
	if err != nil {
		return nil, err
	}
	for _, id := range uniq(req.MemberIDs) {
		group.Members = append(group.Members, models.FriendGroupMember{GroupID: group.ID, FriendID: id})
	}
	return group, nil
}

func (s *UserService) ListGroups(ctx context.Context, userID uint) ([]models.FriendGroup, error) {
	return s.store.WithContext(ctx).FriendGroups.ListGroups(userID)
}

// AddGroupMembers adds connected friends to one of the caller's groups.
func (s *UserService) AddGroupMembers(ctx context.Context, userID, groupID uint, friendIDs []uint) error {
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.FriendGroups.GetGroup(userID, groupID); err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		for _, id := range friendIDs {
			if err := requireConnected(tx, userID, id); err != nil {
				return err
			}
		}
		return tx.FriendGroups.AddMembers(groupID, uniq(friendIDs))
	})
}

func (s *UserService) RemoveGroupMember(ctx context.Context, userID, groupID, friendID uint) error {
	st := s.store.WithContext(ctx)
	if _, err := st.FriendGroups.GetGroup(userID, groupID); err != nil {
		return notFoundAs(err, apperrors.NotFound)
	}
	return st.FriendGroups.RemoveMember(groupID, friendID)
}

// ReportUser blocks reportedID for the reporter in both directions and drops
// subscriptions between them.
func (s *UserService) ReportUser(ctx context.Context, reporterID, reportedID uint, reason string) error {
	if reporterID == reportedID {
		return apperrors.Wrap(apperrors.InvalidPair, models.ErrSelfConnection)
	}
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Users.GetUserByIDUnscoped(reportedID); err != nil {
			return notFoundAs(err, apperrors.NotFound)
		}
		if err := tx.Reports.ReportUser(&models.UserReport{ReporterID: reporterID, ReportedID: reportedID, Reason: reason}); err != nil {
			return err
		}
		return tx.Subscriptions.DeleteBetween(reporterID, reportedID)
	})
}

// ReportContent hides one post or comment from the reporter.
func (s *UserService) ReportContent(ctx context.Context, reporterID uint, req models.ReportContentRequest) error {
	st := s.store.WithContext(ctx)
	ref := models.Ref{Kind: req.Kind, ID: req.ContentID}
	var err error
	switch {
	case ref.Kind == models.KindComment:
		_, err = st.Comments.GetCommentByID(ref.ID)
	case ref.Kind.IsPost():
		_, err = st.Posts.GetPost(ref)
	default:
		return apperrors.New(apperrors.UnknownField, "kind")
	}
	if err != nil {
		return notFoundAs(err, apperrors.NoSuchTarget)
	}
	return st.Reports.ReportContent(&models.ContentReport{ReporterID: reporterID, Kind: ref.Kind, ContentID: ref.ID, Reason: req.Reason})
}
