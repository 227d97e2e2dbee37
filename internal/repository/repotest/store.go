// Package repotest provides an in-memory repository.Store for tests.
//
// It reproduces the parts of the Postgres schema the services depend on:
// unique email and slug constraints, ON DELETE CASCADE from feeds to
// episodes, the floored storage decrement and transaction rollback.
package repotest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/DukeRupert/podcaster/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type state struct {
	users    map[uuid.UUID]repository.User
	feeds    map[uuid.UUID]repository.Feed
	episodes map[uuid.UUID]repository.Episode
}

func (s state) clone() state {
	c := state{
		users:    make(map[uuid.UUID]repository.User, len(s.users)),
		feeds:    make(map[uuid.UUID]repository.Feed, len(s.feeds)),
		episodes: make(map[uuid.UUID]repository.Episode, len(s.episodes)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.feeds {
		c.feeds[k] = v
	}
	for k, v := range s.episodes {
		c.episodes[k] = v
	}
	return c
}

// Store is an in-memory repository.Store.
type Store struct {
	txMu sync.Mutex // serializes ExecTx calls

	mu       sync.Mutex
	data     state
	failures map[string]error
	clock    time.Time
	commits  int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		data: state{
			users:    map[uuid.UUID]repository.User{},
			feeds:    map[uuid.UUID]repository.Feed{},
			episodes: map[uuid.UUID]repository.Episode{},
		},
		failures: map[string]error{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailOn makes every call to the named Querier method return err until
// cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// Commits returns how many transactions have committed.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// EpisodeBytes recomputes the bytes owned by a user from surviving rows.
func (s *Store) EpisodeBytes(userID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, e := range s.data.episodes {
		if e.UserID == userID {
			total += e.CoverBytes + e.AudioBytes
		}
	}
	return total
}

// EpisodeCount returns the number of episode rows referencing feedID.
func (s *Store) EpisodeCount(feedID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.data.episodes {
		if e.FeedID == feedID {
			n++
		}
	}
	return n
}

// ExecTx runs fn against the store and restores the prior state if fn fails.
func (s *Store) ExecTx(ctx context.Context, fn func(q repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	return nil
}

// lock acquires the data lock and returns the injected failure for method.
// Callers must unlock s.mu.
func (s *Store) lock(method string) error {
	s.mu.Lock()
	return s.failures[method]
}

func (s *Store) now() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "insert or update violates foreign key constraint"}
}

// =============================================================================
// Users
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error) {
	defer s.mu.Unlock()
	if err := s.lock("CreateUser"); err != nil {
		return repository.User{}, err
	}
	for _, u := range s.data.users {
		if u.Email == arg.Email {
			return repository.User{}, uniqueViolation(repository.UsersEmailKey)
		}
	}
	u := repository.User{
		ID:           uuid.New(),
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Plan:         arg.Plan,
		CreatedAt:    s.now(),
	}
	s.data.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	defer s.mu.Unlock()
	if err := s.lock("GetUserByID"); err != nil {
		return repository.User{}, err
	}
	u, ok := s.data.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	defer s.mu.Unlock()
	if err := s.lock("GetUserByEmail"); err != nil {
		return repository.User{}, err
	}
	for _, u := range s.data.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (s *Store) AddStorageUsed(ctx context.Context, id uuid.UUID, delta int64) error {
	defer s.mu.Unlock()
	if err := s.lock("AddStorageUsed"); err != nil {
		return err
	}
	if u, ok := s.data.users[id]; ok {
		u.StorageUsed += delta
		s.data.users[id] = u
	}
	return nil
}

func (s *Store) ReleaseStorageUsed(ctx context.Context, id uuid.UUID, delta int64) error {
	defer s.mu.Unlock()
	if err := s.lock("ReleaseStorageUsed"); err != nil {
		return err
	}
	if u, ok := s.data.users[id]; ok {
		u.StorageUsed -= delta
		if u.StorageUsed < 0 {
			u.StorageUsed = 0
		}
		s.data.users[id] = u
	}
	return nil
}

// SetPlan changes a user's plan directly, as an operator would.
func (s *Store) SetPlan(id uuid.UUID, plan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.data.users[id]; ok {
		u.Plan = plan
		s.data.users[id] = u
	}
}

// SetStorageUsed overwrites a user's counter, for seeding usage in tests.
func (s *Store) SetStorageUsed(id uuid.UUID, used int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.data.users[id]; ok {
		u.StorageUsed = used
		s.data.users[id] = u
	}
}

// =============================================================================
// Feeds
// =============================================================================

func (s *Store) CreateFeed(ctx context.Context, arg repository.CreateFeedParams) (repository.Feed, error) {
	defer s.mu.Unlock()
	if err := s.lock("CreateFeed"); err != nil {
		return repository.Feed{}, err
	}
	if _, ok := s.data.users[arg.UserID]; !ok {
		return repository.Feed{}, foreignKeyViolation("feeds_user_id_fkey")
	}
	if arg.Slug.Valid {
		for _, f := range s.data.feeds {
			if f.Slug.Valid && f.Slug.String == arg.Slug.String {
				return repository.Feed{}, uniqueViolation(repository.FeedsSlugKey)
			}
		}
	}
	f := repository.Feed{
		ID:          uuid.New(),
		UserID:      arg.UserID,
		Title:       arg.Title,
		Slug:        arg.Slug,
		Description: arg.Description,
		CreatedAt:   s.now(),
	}
	s.data.feeds[f.ID] = f
	return f, nil
}

func (s *Store) GetFeedByIDAndUser(ctx context.Context, id, userID uuid.UUID) (repository.Feed, error) {
	defer s.mu.Unlock()
	if err := s.lock("GetFeedByIDAndUser"); err != nil {
		return repository.Feed{}, err
	}
	f, ok := s.data.feeds[id]
	if !ok || f.UserID != userID {
		return repository.Feed{}, sql.ErrNoRows
	}
	return f, nil
}

func (s *Store) ListFeeds(ctx context.Context) ([]repository.Feed, error) {
	return s.listFeeds("ListFeeds", func(repository.Feed) bool { return true })
}

func (s *Store) ListFeedsByUser(ctx context.Context, userID uuid.UUID) ([]repository.Feed, error) {
	return s.listFeeds("ListFeedsByUser", func(f repository.Feed) bool { return f.UserID == userID })
}

func (s *Store) listFeeds(method string, keep func(repository.Feed) bool) ([]repository.Feed, error) {
	defer s.mu.Unlock()
	if err := s.lock(method); err != nil {
		return nil, err
	}
	feeds := []repository.Feed{}
	for _, f := range s.data.feeds {
		if keep(f) {
			feeds = append(feeds, f)
		}
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].CreatedAt.After(feeds[j].CreatedAt) })
	return feeds, nil
}

func (s *Store) CountFeedsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer s.mu.Unlock()
	if err := s.lock("CountFeedsByUser"); err != nil {
		return 0, err
	}
	var n int64
	for _, f := range s.data.feeds {
		if f.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteFeedByIDAndUser(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	defer s.mu.Unlock()
	if err := s.lock("DeleteFeedByIDAndUser"); err != nil {
		return 0, err
	}
	f, ok := s.data.feeds[id]
	if !ok || f.UserID != userID {
		return 0, nil
	}
	delete(s.data.feeds, id)
	for eid, e := range s.data.episodes {
		if e.FeedID == id {
			delete(s.data.episodes, eid)
		}
	}
	return 1, nil
}

// =============================================================================
// Episodes
// =============================================================================

func (s *Store) CreateEpisode(ctx context.Context, arg repository.CreateEpisodeParams) (repository.Episode, error) {
	defer s.mu.Unlock()
	if err := s.lock("CreateEpisode"); err != nil {
		return repository.Episode{}, err
	}
	if _, ok := s.data.feeds[arg.FeedID]; !ok {
		return repository.Episode{}, foreignKeyViolation("episodes_feed_id_fkey")
	}
	e := repository.Episode{
		ID:          uuid.New(),
		UserID:      arg.UserID,
		FeedID:      arg.FeedID,
		Title:       arg.Title,
		Description: arg.Description,
		CoverBytes:  arg.CoverBytes,
		AudioBytes:  arg.AudioBytes,
		CreatedAt:   s.now(),
	}
	s.data.episodes[e.ID] = e
	return e, nil
}

func (s *Store) UpdateEpisodeAssets(ctx context.Context, arg repository.UpdateEpisodeAssetsParams) (repository.Episode, error) {
	defer s.mu.Unlock()
	if err := s.lock("UpdateEpisodeAssets"); err != nil {
		return repository.Episode{}, err
	}
	e, ok := s.data.episodes[arg.ID]
	if !ok {
		return repository.Episode{}, sql.ErrNoRows
	}
	e.CoverURL = arg.CoverURL
	e.AudioURL = arg.AudioURL
	e.CoverPublicID = arg.CoverPublicID
	e.AudioPublicID = arg.AudioPublicID
	s.data.episodes[e.ID] = e
	return e, nil
}

func (s *Store) GetEpisodeByID(ctx context.Context, id uuid.UUID) (repository.Episode, error) {
	defer s.mu.Unlock()
	if err := s.lock("GetEpisodeByID"); err != nil {
		return repository.Episode{}, err
	}
	e, ok := s.data.episodes[id]
	if !ok {
		return repository.Episode{}, sql.ErrNoRows
	}
	return e, nil
}

func (s *Store) ListEpisodes(ctx context.Context) ([]repository.Episode, error) {
	return s.listEpisodes("ListEpisodes", func(repository.Episode) bool { return true })
}

func (s *Store) ListEpisodesByFeed(ctx context.Context, feedID uuid.UUID) ([]repository.Episode, error) {
	return s.listEpisodes("ListEpisodesByFeed", func(e repository.Episode) bool { return e.FeedID == feedID })
}

func (s *Store) ListEpisodesByUser(ctx context.Context, userID uuid.UUID) ([]repository.Episode, error) {
	return s.listEpisodes("ListEpisodesByUser", func(e repository.Episode) bool { return e.UserID == userID })
}

func (s *Store) listEpisodes(method string, keep func(repository.Episode) bool) ([]repository.Episode, error) {
	defer s.mu.Unlock()
	if err := s.lock(method); err != nil {
		return nil, err
	}
	episodes := []repository.Episode{}
	for _, e := range s.data.episodes {
		if keep(e) {
			episodes = append(episodes, e)
		}
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].CreatedAt.After(episodes[j].CreatedAt) })
	return episodes, nil
}

func (s *Store) CountEpisodesByFeed(ctx context.Context, userID, feedID uuid.UUID) (int64, error) {
	defer s.mu.Unlock()
	if err := s.lock("CountEpisodesByFeed"); err != nil {
		return 0, err
	}
	var n int64
	for _, e := range s.data.episodes {
		if e.UserID == userID && e.FeedID == feedID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountEpisodesByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer s.mu.Unlock()
	if err := s.lock("CountEpisodesByUser"); err != nil {
		return 0, err
	}
	var n int64
	for _, e := range s.data.episodes {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumEpisodeBytesByFeed(ctx context.Context, feedID uuid.UUID) (int64, error) {
	defer s.mu.Unlock()
	if err := s.lock("SumEpisodeBytesByFeed"); err != nil {
		return 0, err
	}
	var total int64
	for _, e := range s.data.episodes {
		if e.FeedID == feedID {
			total += e.CoverBytes + e.AudioBytes
		}
	}
	return total, nil
}

func (s *Store) DeleteEpisodeByIDAndUser(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	defer s.mu.Unlock()
	if err := s.lock("DeleteEpisodeByIDAndUser"); err != nil {
		return 0, err
	}
	e, ok := s.data.episodes[id]
	if !ok || e.UserID != userID {
		return 0, nil
	}
	delete(s.data.episodes, id)
	return 1, nil
}

var _ repository.Store = (*Store)(nil)
