// Package apperrors defines the finite set of user-visible error codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code names a stable, user-visible error kind.
type Code string

const (
	// Validation
	InvalidUsername  Code = "InvalidUsername"
	LongUsername     Code = "LongUsername"
	ExistingUsername Code = "ExistingUsername"
	InvalidEmail     Code = "InvalidEmail"
	ExistingEmail    Code = "ExistingEmail"
	WeakPassword     Code = "WeakPassword"
	EmptyContent     Code = "EmptyContent"
	UnknownField     Code = "UnknownField"

	// Auth
	NoUsername    Code = "NoUsername"
	WrongPassword Code = "WrongPassword"
	InactiveUser  Code = "InactiveUser"
	CsrfFailed    Code = "CsrfFailed"

	// Authorization
	PermissionDenied Code = "PermissionDenied"
	NotFriend        Code = "NotFriend"
	BlockedUserTag   Code = "BlockedUserTag"
	BlockingUserTag  Code = "BlockingUserTag"

	// State
	ExistingReaction        Code = "ExistingReaction"
	DuplicateLike           Code = "DuplicateLike"
	ExistingResponseRequest Code = "ExistingResponseRequest"
	DeletedQuestion         Code = "DeletedQuestion"
	RequestAlreadyAnswered  Code = "RequestAlreadyAnswered"
	InvalidPair             Code = "InvalidPair"
	CanonicalizationError   Code = "CanonicalizationError"
	ExistingFriendRequest   Code = "ExistingFriendRequest"
	AlreadyFriends          Code = "AlreadyFriends"

	// Not found
	NoSuchQuestion Code = "NoSuchQuestion"
	NoSuchTarget   Code = "NoSuchTarget"
	NotFound       Code = "NotFound"
)

type definition struct {
	number int
	status int
	ko     string
	en     string
}

var definitions = map[Code]definition{
	InvalidUsername:  {1001, http.StatusBadRequest, "사용자 이름에는 영문, 숫자, 마침표, 밑줄만 사용할 수 있어요.", "Usernames may only contain letters, numbers, periods and underscores."},
	LongUsername:     {1002, http.StatusBadRequest, "사용자 이름은 30자 이하여야 해요.", "Usernames must be 30 characters or fewer."},
	ExistingUsername: {1003, http.StatusBadRequest, "이미 사용 중인 사용자 이름이에요.", "This username is already taken."},
	InvalidEmail:     {1004, http.StatusBadRequest, "올바른 이메일 주소가 아니에요.", "Please enter a valid email address."},
	ExistingEmail:    {1005, http.StatusBadRequest, "이미 가입된 이메일이에요.", "An account with this email already exists."},
	WeakPassword:     {1006, http.StatusBadRequest, "비밀번호는 8자 이상이며 영문과 숫자를 모두 포함해야 해요.", "Passwords need at least 8 characters with letters and numbers."},
	EmptyContent:     {1007, http.StatusBadRequest, "내용을 입력해 주세요.", "Content cannot be empty."},
	UnknownField:     {1008, http.StatusBadRequest, "알 수 없는 항목이 포함되어 있어요.", "The request contains an unknown or invalid field."},

	NoUsername:    {2001, http.StatusUnauthorized, "존재하지 않는 사용자예요.", "No account exists with that username."},
	WrongPassword: {2002, http.StatusUnauthorized, "비밀번호가 일치하지 않아요.", "The password is incorrect."},
	InactiveUser:  {2003, http.StatusUnauthorized, "비활성화된 계정이에요.", "This account is not active."},
	CsrfFailed:    {2004, http.StatusForbidden, "요청을 확인할 수 없어요.", "The request could not be verified."},

	PermissionDenied: {3001, http.StatusForbidden, "볼 수 없는 콘텐츠예요.", "This content is not available."},
	NotFriend:        {3002, http.StatusForbidden, "친구만 할 수 있어요.", "You need to be friends to do this."},
	BlockedUserTag:   {3003, http.StatusForbidden, "이 사용자와 상호작용할 수 없어요.", "You cannot interact with this user."},
	BlockingUserTag:  {3004, http.StatusForbidden, "차단한 사용자예요.", "You have blocked this user."},

	ExistingReaction:        {4001, http.StatusConflict, "이미 같은 반응을 남겼어요.", "You already reacted with this emoji."},
	DuplicateLike:           {4002, http.StatusConflict, "이미 좋아요를 눌렀어요.", "You already liked this."},
	ExistingResponseRequest: {4003, http.StatusConflict, "이미 질문을 보냈어요.", "You already sent this question."},
	DeletedQuestion:         {4004, http.StatusGone, "삭제된 질문이에요.", "This question has been deleted."},
	RequestAlreadyAnswered:  {4005, http.StatusConflict, "이미 처리된 요청이에요.", "This request has already been answered."},
	InvalidPair:             {4006, http.StatusBadRequest, "자기 자신과는 연결할 수 없어요.", "You cannot connect with yourself."},
	CanonicalizationError:   {4007, http.StatusInternalServerError, "연결 정보를 저장할 수 없어요.", "The connection could not be stored."},
	ExistingFriendRequest:   {4008, http.StatusConflict, "이미 친구 요청을 보냈어요.", "You already sent a friend request."},
	AlreadyFriends:          {4009, http.StatusConflict, "이미 친구예요.", "You are already friends."},

	NoSuchQuestion: {5001, http.StatusNotFound, "질문을 찾을 수 없어요.", "The question does not exist."},
	NoSuchTarget:   {5002, http.StatusNotFound, "대상을 찾을 수 없어요.", "The target does not exist."},
	NotFound:       {5003, http.StatusNotFound, "찾을 수 없어요.", "Not found."},
}

var (
	genericKo = "이용할 수 없어요."
	genericEn = "Not available."
)

// Error is a coded application error. Cause is kept for logs and never rendered.
type Error struct {
	Code   Code
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// New returns an error for code with an optional formatted detail.
func New(code Code, format string, args ...interface{}) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Detail: detail}
}

// Wrap attaches cause to a coded error.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

// E is shorthand for a bare coded error, handy as an errors.Is target.
func E(code Code) *Error {
	return &Error{Code: code}
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, if any.
func CodeOf(err error) (Code, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// StatusOf maps err to an HTTP status; uncoded errors are 500s.
func StatusOf(err error) int {
	if code, ok := CodeOf(err); ok {
		return code.Status()
	}
	return http.StatusInternalServerError
}

// Status returns the HTTP status for code.
func (c Code) Status() int {
	if d, ok := definitions[c]; ok {
		return d.status
	}
	return http.StatusInternalServerError
}

// Number returns the stable numeric code.
func (c Code) Number() int {
	return definitions[c].number
}

// IsAuthorization reports whether the code should surface as a generic "not available".
func (c Code) IsAuthorization() bool {
	switch c {
	case PermissionDenied, NotFriend, BlockedUserTag, BlockingUserTag:
		return true
	}
	return false
}

// Message returns the localized message for lang ("ko" or "en"). Authorization
// codes collapse to a generic message so existence is not leaked.
func (c Code) Message(lang string) string {
	if c.IsAuthorization() {
		if lang == "ko" {
			return genericKo
		}
		return genericEn
	}
	d, ok := definitions[c]
	if !ok {
		return string(c)
	}
	if lang == "ko" {
		return d.ko
	}
	return d.en
}
