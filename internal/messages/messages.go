// Package messages renders bilingual notification text.
package messages

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anonto42/whoami-today/backend/internal/models"
)

// PreviewLength is the number of characters kept from the source text.
const PreviewLength = 18

// Text is a message in both supported languages.
type Text struct {
	Ko string
	En string
}

// In picks the variant for lang.
func (t Text) In(lang models.Language) string {
	if lang == models.LanguageKo {
		return t.Ko
	}
	return t.En
}

// Preview quotes s, cut to PreviewLength characters with a trailing "..."
// when it was longer. Blank input gives "".
func Preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) > PreviewLength {
		s = string([]rune(s)[:PreviewLength]) + "..."
	}
	return `"` + s + `"`
}

func withPreview(msg, preview string) string {
	if preview == "" {
		return msg
	}
	return msg + ": " + preview
}

type kindName struct{ ko, en string }

var kindNames = map[models.Kind]kindName{
	models.KindResponse: {"답변", "response"},
	models.KindNote:     {"노트", "note"},
	models.KindMoment:   {"모먼트", "moment"},
	models.KindCheckIn:  {"체크인", "check-in"},
	models.KindComment:  {"댓글", "comment"},
}

func nameOf(kind models.Kind) kindName {
	if n, ok := kindNames[kind]; ok {
		return n
	}
	return kindName{"게시물", "post"}
}

// actorsEn renders "a1", "a1 and a2" or "a1, a2, and N other friend(s)".
func actorsEn(names []string, total int) string {
	switch {
	case total <= 1 || len(names) < 2:
		return first(names)
	case total == 2:
		return fmt.Sprintf("%s and %s", names[0], names[1])
	default:
		return fmt.Sprintf("%s, %s, and %d other friend(s)", names[0], names[1], total-2)
	}
}

// actorsKo is the Korean counterpart of actorsEn, subject particle included.
func actorsKo(names []string, total int) string {
	switch {
	case total <= 1 || len(names) < 2:
		return first(names) + "님이"
	case total == 2:
		return fmt.Sprintf("%s님과 %s님이", names[0], names[1])
	default:
		return fmt.Sprintf("%s님, %s님 외 %d명의 친구가", names[0], names[1], total-2)
	}
}

// objectParticle picks 을 after a final consonant and 를 after a vowel.
func objectParticle(word string) string {
	r, _ := utf8.DecodeLastRuneInString(word)
	if r < 0xAC00 || r > 0xD7A3 {
		return "을(를)"
	}
	if (r-0xAC00)%28 == 0 {
		return "를"
	}
	return "을"
}

func first(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Like renders a coalesced like. names holds the most recent actors first;
// total is the full actor count.
func Like(names []string, total int, kind models.Kind, preview string) Text {
	k := nameOf(kind)
	return Text{
		Ko: withPreview(fmt.Sprintf("%s 회원님의 %s%s 좋아해요", actorsKo(names, total), k.ko, objectParticle(k.ko)), preview),
		En: withPreview(fmt.Sprintf("%s liked your %s", actorsEn(names, total), k.en), preview),
	}
}

// Reaction renders a coalesced emoji reaction.
func Reaction(names []string, total int, kind models.Kind, emoji, preview string) Text {
	k := nameOf(kind)
	return Text{
		Ko: withPreview(fmt.Sprintf("%s 회원님의 %s에 %s 반응을 남겼어요", actorsKo(names, total), k.ko, emoji), preview),
		En: withPreview(fmt.Sprintf("%s reacted with %s to your %s", actorsEn(names, total), emoji, k.en), preview),
	}
}

// ResponseRequest renders the coalesced "please answer" notification.
func ResponseRequest(names []string, total int, preview string) Text {
	var en, ko string
	switch {
	case total <= 1 || len(names) < 2:
		en = first(names) + " has"
		ko = first(names) + "님이"
	case total == 2:
		en = fmt.Sprintf("%s, %s have", names[0], names[1])
		ko = fmt.Sprintf("%s님, %s님이", names[0], names[1])
	default:
		en = fmt.Sprintf("%s, %s, and %d others have", names[0], names[1], total-2)
		ko = fmt.Sprintf("%s님, %s님 외 %d명이", names[0], names[1], total-2)
	}
	return Text{
		Ko: withPreview("똑똑! "+ko+" 질문을 보냈어요", preview),
		En: withPreview("Knock knock! "+en+" sent you a question", preview),
	}
}

// Comment is sent to the author of the commented post.
func Comment(actor string, kind models.Kind, preview string) Text {
	k := nameOf(kind)
	return Text{
		Ko: withPreview(fmt.Sprintf("%s님이 회원님의 %s에 댓글을 남겼어요", actor, k.ko), preview),
		En: withPreview(fmt.Sprintf("%s commented on your %s", actor, k.en), preview),
	}
}

// Reply is sent to the author of the replied-to comment.
func Reply(actor, preview string) Text {
	return Text{
		Ko: withPreview(fmt.Sprintf("%s님이 회원님의 댓글에 답글을 남겼어요", actor), preview),
		En: withPreview(fmt.Sprintf("%s replied to your comment", actor), preview),
	}
}

// ThreadReply is sent to the root-post author when someone replies in its thread.
func ThreadReply(actor string, kind models.Kind, preview string) Text {
	k := nameOf(kind)
	return Text{
		Ko: withPreview(fmt.Sprintf("%s님이 회원님의 %s에 달린 댓글에 답글을 남겼어요", actor, k.ko), preview),
		En: withPreview(fmt.Sprintf("%s replied to a comment on your %s", actor, k.en), preview),
	}
}

// Participant is sent to earlier commenters of the same parent.
func Participant(actor, owner string, kind models.Kind, preview string) Text {
	k := nameOf(kind)
	return Text{
		Ko: withPreview(fmt.Sprintf("%s님도 %s님의 %s에 댓글을 남겼어요", actor, owner, k.ko), preview),
		En: withPreview(fmt.Sprintf("%s also commented on %s's %s", actor, owner, k.en), preview),
	}
}

// RequestFulfilled tells a requester their question was answered.
func RequestFulfilled(actor, preview string) Text {
	return Text{
		Ko: withPreview(fmt.Sprintf("%s님이 회원님의 질문에 답했어요", actor), preview),
		En: withPreview(fmt.Sprintf("%s has responded to your question", actor), preview),
	}
}

// NewResponse is sent to subscribers of the author's responses.
func NewResponse(actor, preview string) Text {
	return Text{
		Ko: withPreview(fmt.Sprintf("%s님이 질문에 답했어요", actor), preview),
		En: withPreview(fmt.Sprintf("%s answered a question", actor), preview),
	}
}

// NewNote is sent to subscribers of the author's notes.
func NewNote(actor, preview string) Text {
	return Text{
		Ko: withPreview(fmt.Sprintf("%s님이 새 노트를 작성했어요", actor), preview),
		En: withPreview(fmt.Sprintf("%s wrote a new note", actor), preview),
	}
}

func FriendRequest(actor string) Text {
	return Text{
		Ko: fmt.Sprintf("%s님이 친구 요청을 보냈어요.", actor),
		En: fmt.Sprintf("%s sent you a friend request.", actor),
	}
}

func FriendAccepted(other string) Text {
	return Text{
		Ko: fmt.Sprintf("%s님과 친구가 되었어요!", other),
		En: fmt.Sprintf("You and %s are now friends!", other),
	}
}

// DailyPrompt carries the day's question in each language, unquoted.
func DailyPrompt(question Text) Text {
	return Text{
		Ko: "오늘의 질문: " + question.Ko,
		En: "Today's question: " + question.En,
	}
}
