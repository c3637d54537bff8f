// Package store declares the persistence contract the practice engine depends on.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/korbot/pkg/models"
)

// ErrNotFound is returned (wrapped) when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the relational collaborator behind item selection, outcome recording
// and level estimation. Implementations must be safe to use from one goroutine
// per call; InTx gives a Store bound to a single transaction.
type Store interface {
	// Items.
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, itemID int64) (*models.Item, error)
	FindItemByKorean(ctx context.Context, korean string, itemType models.ItemType) (*models.Item, error)

	// Students.
	CreateStudent(ctx context.Context, student *models.Student) error
	GetStudent(ctx context.Context, studentID int64) (*models.Student, error)
	GetStudentByChatID(ctx context.Context, chatID int64) (*models.Student, error)
	ListStudentsWithChat(ctx context.Context) ([]models.Student, error)

	// Selection tiers.
	ListCuratorUnseen(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error)
	ListOverdue(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error)
	ListScheduled(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error)
	ListCurriculumNew(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error)
	ListDue(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error)
	CountDue(ctx context.Context, studentID int64, now time.Time) (int, error)

	// Per student×item state.
	EnsureItemState(ctx context.Context, studentID, itemID int64, now time.Time) error
	GetSchedulingState(ctx context.Context, studentID, itemID int64) (*models.SchedulingState, error)
	SaveSchedulingState(ctx context.Context, state *models.SchedulingState) error
	GetMastery(ctx context.Context, studentID, itemID int64) (*models.MasteryRecord, error)
	SaveMastery(ctx context.Context, record *models.MasteryRecord) error
	RecordEncounter(ctx context.Context, studentID, itemID int64, kind models.EncounterKind, now time.Time) error
	GetEncounter(ctx context.Context, studentID, itemID int64) (*models.EncounterRecord, error)

	// Curriculum.
	GetCurriculumState(ctx context.Context, studentID int64) (*models.CurriculumState, error)
	SaveCurriculumState(ctx context.Context, state *models.CurriculumState) error

	// Analytics.
	ListLevelSamples(ctx context.Context, studentID int64) ([]models.LevelSample, error)
	LatestLevel(ctx context.Context, studentID int64) (*models.LevelHistory, error)
	AppendLevelHistory(ctx context.Context, entry *models.LevelHistory) error
	ListItemMetrics(ctx context.Context, studentID int64) ([]models.ItemMetrics, error)
	CreatePracticeLog(ctx context.Context, entry *models.PracticeLog) error

	// InTx runs fn against a transaction-bound Store. Nested calls reuse the
	// outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
