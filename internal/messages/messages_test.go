package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anonto42/whoami-today/backend/internal/models"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, `"short"`, Preview("short"))
	assert.Equal(t, `"exactly eighteen c"`, Preview("exactly eighteen c"))
	assert.Equal(t, `"this is a long res..."`, Preview("this is a long response body"))
	assert.Equal(t, `"가나다라마바사아자차카타파하가나다라..."`, Preview("가나다라마바사아자차카타파하가나다라마바사"))
	assert.Equal(t, `"two lines"`, Preview("two\n  lines"))
	assert.Equal(t, "", Preview("   "))
}

func TestLikeMessages(t *testing.T) {
	p := Preview("hello")

	one := Like([]string{"U1"}, 1, models.KindResponse, p)
	assert.Equal(t, `U1 liked your response: "hello"`, one.En)
	assert.Equal(t, `U1님이 회원님의 답변을 좋아해요: "hello"`, one.Ko)

	two := Like([]string{"U2", "U1"}, 2, models.KindResponse, p)
	assert.Equal(t, `U2 and U1 liked your response: "hello"`, two.En)

	three := Like([]string{"U3", "U2"}, 3, models.KindResponse, p)
	assert.Equal(t, `U3, U2, and 1 other friend(s) liked your response: "hello"`, three.En)
	assert.Equal(t, `U3님, U2님 외 1명의 친구가 회원님의 답변을 좋아해요: "hello"`, three.Ko)

	comment := Like([]string{"U1"}, 1, models.KindComment, p)
	assert.Equal(t, `U1 liked your comment: "hello"`, comment.En)
}

func TestReactionMessage(t *testing.T) {
	msg := Reaction([]string{"U2", "U1"}, 2, models.KindNote, "🔥", Preview("note body"))
	assert.Equal(t, `U2 and U1 reacted with 🔥 to your note: "note body"`, msg.En)
}

func TestResponseRequestMessage(t *testing.T) {
	q := Preview("What made you smile?")
	assert.Equal(t, `Knock knock! U1 has sent you a question: "What made you smil..."`, ResponseRequest([]string{"U1"}, 1, q).En)
	assert.Equal(t, `Knock knock! U2, U1 have sent you a question: "What made you smil..."`, ResponseRequest([]string{"U2", "U1"}, 2, q).En)
	assert.Equal(t, `Knock knock! U3, U2, and 2 others have sent you a question: "What made you smil..."`, ResponseRequest([]string{"U3", "U2"}, 4, q).En)
}

func TestFixedTemplates(t *testing.T) {
	assert.Equal(t, `A has responded to your question: "Q"`, RequestFulfilled("A", Preview("Q")).En)
	assert.Equal(t, "B sent you a friend request.", FriendRequest("B").En)
	assert.Equal(t, "You and B are now friends!", FriendAccepted("B").En)
	assert.Equal(t, "Today's question: Q?", DailyPrompt(Text{Ko: "질문?", En: "Q?"}).En)
	assert.Equal(t, `C also commented on A's response: "hi"`, Participant("C", "A", models.KindResponse, Preview("hi")).En)
	assert.Equal(t, "X", Text{Ko: "Y", En: "X"}.In(models.LanguageEn))
	assert.Equal(t, "Y", Text{Ko: "Y", En: "X"}.In(models.LanguageKo))
}

func TestLikeObjectParticleFollowsFinalSound(t *testing.T) {
	cases := map[models.Kind]string{
		models.KindResponse: "U1님이 회원님의 답변을 좋아해요",
		models.KindNote:     "U1님이 회원님의 노트를 좋아해요",
		models.KindMoment:   "U1님이 회원님의 모먼트를 좋아해요",
		models.KindCheckIn:  "U1님이 회원님의 체크인을 좋아해요",
		models.KindComment:  "U1님이 회원님의 댓글을 좋아해요",
	}
	for kind, want := range cases {
		assert.Equal(t, want, Like([]string{"U1"}, 1, kind, "").Ko, kind)
	}
}
