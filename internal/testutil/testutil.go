// Package testutil provides an in-memory store, fixtures and fakes for
// service and handler tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/push"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
)

// Clock hands out strictly increasing timestamps so ordering by created_at
// is deterministic.
type Clock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func NewClock(start time.Time) *Clock {
	return &Clock{t: start.UTC(), step: time.Millisecond}
}

// Now advances the clock by one step and returns it.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// NewStore opens a private in-memory SQLite database with the full schema.
// Row timestamps come from clock.
func NewStore(t *testing.T, clock *Clock) *repositories.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        clock.Now,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repositories.Migrate(db))
	return repositories.NewStore(db)
}

// PostgresDSNEnv names the database used by ConcurrentStore.
const PostgresDSNEnv = "TEST_POSTGRES_DSN"

// ConcurrentStore opens the Postgres database named by TEST_POSTGRES_DSN so
// that concurrent transactions really interleave. Without it, it falls back
// to NewStore, where writers are serialized. The Postgres database is shared
// across runs, so callers should use UniqueName for fixtures.
func ConcurrentStore(t *testing.T, clock *Clock) *repositories.Store {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		return NewStore(t, clock)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repositories.Migrate(db))
	return repositories.NewStore(db)
}

// UniqueName returns prefix with a random suffix short enough for a username.
func UniqueName(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

// CreateUser inserts an active user named username.
func CreateUser(t *testing.T, st *repositories.Store, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Language: models.LanguageEn,
		Timezone: "Asia/Seoul",
		IsActive: true,
	}
	require.NoError(t, st.Users.CreateUser(user))
	return user
}

// Connect creates the a-b edge with the given sides.
func Connect(t *testing.T, st *repositories.Store, a, b uint, choiceA, choiceB models.Choice) *models.Connection {
	t.Helper()
	low, high := models.CanonicalPair(a, b)
	conn := &models.Connection{UserLowID: low, UserHighID: high}
	conn.InitSide(a, choiceA)
	conn.InitSide(b, choiceB)
	require.NoError(t, st.Connections.CreateConnection(conn))
	return conn
}

// Befriend connects a and b as friends on both sides.
func Befriend(t *testing.T, st *repositories.Store, a, b uint) *models.Connection {
	t.Helper()
	return Connect(t, st, a, b, models.ChoiceFriend, models.ChoiceFriend)
}

// Note creates a note by author with the given visibility.
func Note(t *testing.T, st *repositories.Store, authorID uint, content string, visibility models.Visibility) *models.Note {
	t.Helper()
	note := &models.Note{Content: content}
	note.AuthorID = authorID
	note.ApplyAccess(models.Access{Visibility: visibility})
	require.NoError(t, st.Posts.CreatePost(note))
	return note
}

// Question creates an admin question.
func Question(t *testing.T, st *repositories.Store, content string) *models.Question {
	t.Helper()
	q := &models.Question{Content: content, ContentKo: content, IsAdminQuestion: true}
	require.NoError(t, st.Questions.CreateQuestion(q))
	return q
}

// RecordingDispatcher keeps every dispatched job.
type RecordingDispatcher struct {
	mu   sync.Mutex
	jobs []push.Job
}

func (d *RecordingDispatcher) Dispatch(jobs ...push.Job) {
	d.mu.Lock()
	d.jobs = append(d.jobs, jobs...)
	d.mu.Unlock()
}

// Jobs returns a copy of the dispatched jobs.
func (d *RecordingDispatcher) Jobs() []push.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]push.Job(nil), d.jobs...)
}

// For returns the jobs addressed to recipientID.
func (d *RecordingDispatcher) For(recipientID uint) []push.Job {
	var out []push.Job
	for _, j := range d.Jobs() {
		if j.RecipientID == recipientID {
			out = append(out, j)
		}
	}
	return out
}

// Reset forgets everything dispatched so far.
func (d *RecordingDispatcher) Reset() {
	d.mu.Lock()
	d.jobs = nil
	d.mu.Unlock()
}

// ChatMessages is an in-memory repositories.ChatMessageRepository.
type ChatMessages struct {
	mu   sync.Mutex
	msgs []models.ChatMessage
}

func (m *ChatMessages) CreateMessage(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *ChatMessages) GetMessagesByRoom(_ context.Context, roomID uint, skip, limit int64) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatMessage
	for _, msg := range m.msgs {
		if msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if skip >= int64(len(out)) {
		return nil, nil
	}
	out = out[skip:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}
