package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqliteRepo, err := NewSQLite(filepath.Join(t.TempDir(), "frontdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteRepo.Close() })

	return map[string]Repository{
		"memory": NewMemory(),
		"sqlite": sqliteRepo,
	}
}

func statusPtr(s domain.RequestStatus) *domain.RequestStatus { return &s }

func TestRequestLifecycle(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created := time.Now().Truncate(time.Millisecond)

			req, err := repo.CreateRequest(ctx, NewHelpRequest{
				SessionID:       "call-1",
				Question:        "Do you do wedding hair?",
				CustomerContact: "+15550100",
				CreatedAt:       created,
				Window:          30 * time.Minute,
			})
			require.NoError(t, err)
			assert.NotEmpty(t, req.ID)
			assert.Equal(t, domain.StatusPending, req.Status)
			assert.True(t, req.TimeoutAt.Equal(created.Add(30*time.Minute)))

			got, err := repo.GetRequest(ctx, req.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, req.Question, got.Question)

			missing, err := repo.GetRequest(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, missing)

			resolvedAt := created.Add(5 * time.Minute)
			answer := "Yes, bridal packages start at $200"
			updated, err := repo.UpdateRequest(ctx, req.ID, RequestPatch{
				ExpectStatus: domain.StatusPending,
				Status:       statusPtr(domain.StatusResolved),
				ResolvedAt:   &resolvedAt,
				Answer:       &answer,
			})
			require.NoError(t, err)
			assert.Equal(t, domain.StatusResolved, updated.Status)
			assert.Equal(t, answer, updated.Answer)
			require.NotNil(t, updated.ResolvedAt)
			assert.True(t, updated.ResolvedAt.Equal(resolvedAt))

			_, err = repo.UpdateRequest(ctx, req.ID, RequestPatch{
				ExpectStatus: domain.StatusPending,
				Status:       statusPtr(domain.StatusTimeout),
			})
			assert.ErrorIs(t, err, ErrStatusConflict)

			_, err = repo.UpdateRequest(ctx, "nope", RequestPatch{Status: statusPtr(domain.StatusTimeout)})
			assert.ErrorIs(t, err, ErrNotFound)

			after, err := repo.GetRequest(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusResolved, after.Status)
		})
	}
}

func TestListOrdering(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

			var ids []string
			for i := 0; i < 3; i++ {
				req, err := repo.CreateRequest(ctx, NewHelpRequest{
					SessionID: "call",
					Question:  "question",
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
					Window:    10 * time.Minute,
				})
				require.NoError(t, err)
				ids = append(ids, req.ID)
			}

			all, err := repo.ListRequests(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, ids[2], all[0].ID, "newest first")

			pending, err := repo.ListPending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 3)
			assert.Equal(t, ids[0], pending[0].ID, "oldest first")

			expired, err := repo.ListExpired(ctx, base.Add(11*time.Minute))
			require.NoError(t, err)
			require.Len(t, expired, 2)
			assert.Equal(t, ids[0], expired[0].ID)
			assert.Equal(t, ids[1], expired[1].ID)
		})
	}
}

func TestCompareAndSetRace(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			req, err := repo.CreateRequest(ctx, NewHelpRequest{
				SessionID: "call", Question: "q", CreatedAt: time.Now(), Window: time.Minute,
			})
			require.NoError(t, err)

			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					target := domain.StatusResolved
					if i%2 == 0 {
						target = domain.StatusTimeout
					}
					if _, err := repo.UpdateRequest(ctx, req.ID, RequestPatch{
						ExpectStatus: domain.StatusPending,
						Status:       &target,
					}); err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()
			assert.Equal(t, 1, wins)
		})
	}
}

func TestKnowledgeEntries(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := repo.AddKnowledgeEntry(ctx, "What are your hours?", "9 to 7", []string{"hours"})
			require.NoError(t, err)
			second, err := repo.AddKnowledgeEntry(ctx, "Is there parking?", "Free parking out back", nil)
			require.NoError(t, err)
			assert.Equal(t, []string{domain.DefaultTag}, second.Tags)

			all, err := repo.ListKnowledgeEntries(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, second.ID, all[0].ID, "newest first")

			bumped, err := repo.IncrementUsage(ctx, first.ID)
			require.NoError(t, err)
			require.NotNil(t, bumped)
			assert.Equal(t, 1, bumped.UsageCount)

			missing, err := repo.IncrementUsage(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, missing)

			found, err := repo.SearchKnowledge(ctx, "PARKING")
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, second.ID, found[0].ID)

			byTag, err := repo.SearchKnowledge(ctx, "hours")
			require.NoError(t, err)
			require.Len(t, byTag, 1)

			deleted, err := repo.DeleteKnowledgeEntry(ctx, second.ID)
			require.NoError(t, err)
			assert.True(t, deleted)
			deleted, err = repo.DeleteKnowledgeEntry(ctx, second.ID)
			require.NoError(t, err)
			assert.False(t, deleted)

			stats, err := repo.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, stats.KnowledgeEntries)
			assert.Equal(t, 0, stats.TotalRequests)
		})
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	entries, err := LoadSeed("")
	require.NoError(t, err)
	require.Len(t, entries, 5)

	n, err := Seed(ctx, repo, entries)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = Seed(ctx, repo, entries)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second seed must not duplicate entries")
}

func TestParseSeedRejectsIncompleteEntries(t *testing.T) {
	_, err := parseSeed([]byte("entries:\n  - question: only a question\n"))
	require.Error(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "")
	require.Error(t, err)
}

func TestNewSQLiteFailsOnDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSQLite(dir)
	require.Error(t, err)

	// The failed handle is closed, so the directory can still be removed.
	require.NoError(t, os.RemoveAll(dir))
}
