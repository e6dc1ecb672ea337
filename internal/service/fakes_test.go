package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platforms"
)

var errDB = errors.New("database unavailable")

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.ConnectedAccount
	updates  []models.TokenUpdate
	upserts  []*models.ConnectedAccount
	disabled []models.Platform
}

func newFakeAccounts(accounts ...*models.ConnectedAccount) *fakeAccounts {
	f := &fakeAccounts{accounts: map[string]*models.ConnectedAccount{}}
	for _, a := range accounts {
		f.accounts[accountKey(a.UserID, a.Platform)] = a
	}
	return f
}

func accountKey(userID int64, platform models.Platform) string {
	return fmt.Sprintf("%d:%s", userID, platform)
}

func (f *fakeAccounts) GetByUserAndPlatform(ctx context.Context, userID int64, platform models.Platform) (*models.ConnectedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountKey(userID, platform)]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (f *fakeAccounts) ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ConnectedAccount
	for _, p := range models.Platforms {
		if a, ok := f.accounts[accountKey(userID, p)]; ok {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAccounts) ListExpiring(ctx context.Context, before time.Time) ([]*models.ConnectedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ConnectedAccount
	for _, a := range f.accounts {
		if a.IsActive && a.RefreshToken != "" && (a.ExpiresAt == nil || !a.ExpiresAt.After(before)) {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAccounts) Upsert(ctx context.Context, account *models.ConnectedAccount) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := *account
	f.upserts = append(f.upserts, &rec)

	c := *account

	key := accountKey(account.UserID, account.Platform)
	if existing, ok := f.accounts[key]; ok {
		if c.RefreshToken == "" {
			c.RefreshToken = existing.RefreshToken
		}
		c.ID = existing.ID
	} else {
		c.ID = int64(len(f.accounts) + 1)
	}
	c.IsActive = true
	f.accounts[key] = &c
	return c.ID, nil
}

func (f *fakeAccounts) UpdateTokens(ctx context.Context, id int64, update models.TokenUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	for _, a := range f.accounts {
		if a.ID != id {
			continue
		}
		a.AccessToken = update.AccessToken
		if update.RefreshToken != "" {
			a.RefreshToken = update.RefreshToken
		}
		if update.TokenType != "" {
			a.TokenType = update.TokenType
		}
		if update.Scope != "" {
			a.Scope = update.Scope
		}
		expiry := update.ExpiresAt
		a.ExpiresAt = &expiry
		a.IsActive = true
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeAccounts) Deactivate(ctx context.Context, userID int64, platform models.Platform) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled = append(f.disabled, platform)
	if a, ok := f.accounts[accountKey(userID, platform)]; ok {
		a.IsActive = false
	}
	return nil
}

type fakeRefresher struct {
	mu     sync.Mutex
	calls  []string
	result *RefreshedToken
	err    error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, refreshToken)
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

// blockingRefresher holds every refresh until release is closed.
type blockingRefresher struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newBlockingRefresher() *blockingRefresher {
	return &blockingRefresher{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingRefresher) Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.once.Do(func() { close(b.started) })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return &RefreshedToken{AccessToken: "new-access", Expiry: testNow.Add(time.Hour)}, nil
	}
}

type fakeJobs struct {
	jobs map[string]*models.Job
	err  error
}

func newFakeJobs(jobs ...*models.Job) *fakeJobs {
	f := &fakeJobs{jobs: map[string]*models.Job{}}
	for _, j := range jobs {
		f.jobs[j.ID] = j
	}
	return f
}

func (f *fakeJobs) Create(ctx context.Context, tx *sql.Tx, job *models.Job) error {
	if f.err != nil {
		return f.err
	}
	c := *job
	f.jobs[job.ID] = &c
	return nil
}

func (f *fakeJobs) GetByID(ctx context.Context, id string) (*models.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	c := *j
	return &c, nil
}

func (f *fakeJobs) MarkRunning(ctx context.Context, id string) error {
	j := f.jobs[id]
	j.Status = models.JobStatusRunning
	j.Attempts++
	now := time.Now()
	j.StartedAt = &now
	return nil
}

func (f *fakeJobs) MarkSucceeded(ctx context.Context, id string) error {
	j := f.jobs[id]
	j.Status = models.JobStatusSuccess
	j.LastError = ""
	if j.FinishedAt == nil {
		now := time.Now()
		j.FinishedAt = &now
	}
	return nil
}

func (f *fakeJobs) MarkFailed(ctx context.Context, id, lastError string) error {
	j := f.jobs[id]
	j.Status = models.JobStatusFailed
	j.LastError = lastError
	if j.FinishedAt == nil {
		now := time.Now()
		j.FinishedAt = &now
	}
	return nil
}

func (f *fakeJobs) MarkPending(ctx context.Context, id, lastError string) error {
	j := f.jobs[id]
	j.Status = models.JobStatusPending
	j.LastError = lastError
	return nil
}

type fakeJobLogs struct {
	entries []*models.JobLog
	err     error
}

func (f *fakeJobLogs) Append(ctx context.Context, entry *models.JobLog) error {
	if f.err != nil {
		return f.err
	}
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeJobLogs) ListByJobID(ctx context.Context, jobID string) ([]*models.JobLog, error) {
	var out []*models.JobLog
	for _, e := range f.entries {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeJobLogs) messages() []string {
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Message)
	}
	return out
}

type aggregateWrite struct {
	status      models.PostStatus
	publishedAt *time.Time
}

type fakePosts struct {
	posts        map[string]*models.Post
	destinations *fakeDestinations
	aggregates   []aggregateWrite
}

func newFakePosts(dests *fakeDestinations, posts ...*models.Post) *fakePosts {
	f := &fakePosts{posts: map[string]*models.Post{}, destinations: dests}
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakePosts) Create(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	c := *post
	f.posts[post.ID] = &c
	return nil
}

func (f *fakePosts) CreateWithDestinations(ctx context.Context, post *models.Post, destinations []*models.PostDestination) error {
	if err := f.Create(ctx, nil, post); err != nil {
		return err
	}
	for _, d := range destinations {
		d.PostID = post.ID
		if err := f.destinations.Create(ctx, nil, d); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakePosts) GetByID(ctx context.Context, id string) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f *fakePosts) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range f.posts {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakePosts) UpdateStatus(ctx context.Context, id string, status models.PostStatus) error {
	f.posts[id].Status = status
	return nil
}

func (f *fakePosts) SetAggregateStatus(ctx context.Context, id string, status models.PostStatus, publishedAt *time.Time) error {
	f.aggregates = append(f.aggregates, aggregateWrite{status: status, publishedAt: publishedAt})
	p := f.posts[id]
	p.Status = status
	if publishedAt != nil {
		p.PublishedAt = publishedAt
	}
	return nil
}

type fakeDestinations struct {
	order   []string
	byID    map[string]*models.PostDestination
	history map[string][]models.DestinationStatus
	// failOn makes writes of that status fail.
	failOn models.DestinationStatus
}

func newFakeDestinations(dests ...*models.PostDestination) *fakeDestinations {
	f := &fakeDestinations{byID: map[string]*models.PostDestination{}, history: map[string][]models.DestinationStatus{}}
	for _, d := range dests {
		f.Create(context.Background(), nil, d)
	}
	return f
}

func (f *fakeDestinations) Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) error {
	c := *d
	f.order = append(f.order, d.ID)
	f.byID[d.ID] = &c
	return nil
}

func (f *fakeDestinations) ListByPostID(ctx context.Context, postID string) ([]*models.PostDestination, error) {
	var out []*models.PostDestination
	for _, id := range f.order {
		if d := f.byID[id]; d.PostID == postID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeDestinations) ListByPostIDAndPlatforms(ctx context.Context, postID string, ps []models.Platform) ([]*models.PostDestination, error) {
	all, _ := f.ListByPostID(ctx, postID)
	var out []*models.PostDestination
	for _, d := range all {
		for _, p := range ps {
			if d.Platform == p {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (f *fakeDestinations) record(id string, status models.DestinationStatus) error {
	if f.failOn == status {
		return errDB
	}
	f.byID[id].Status = status
	f.history[id] = append(f.history[id], status)
	return nil
}

func (f *fakeDestinations) MarkUploading(ctx context.Context, id string) error {
	if err := f.record(id, models.DestinationStatusUploading); err != nil {
		return err
	}
	f.byID[id].Attempts++
	return nil
}

func (f *fakeDestinations) UpdateStatus(ctx context.Context, id string, status models.DestinationStatus) error {
	return f.record(id, status)
}

func (f *fakeDestinations) MarkPublished(ctx context.Context, id, externalPostID, externalMediaID string) error {
	if err := f.record(id, models.DestinationStatusPublished); err != nil {
		return err
	}
	d := f.byID[id]
	d.ExternalPostID = externalPostID
	d.ExternalMediaID = externalMediaID
	d.LastError = ""
	d.LastErrorAt = nil
	return nil
}

func (f *fakeDestinations) MarkFailed(ctx context.Context, id, lastError string, at time.Time) error {
	if err := f.record(id, models.DestinationStatusFailed); err != nil {
		return err
	}
	d := f.byID[id]
	d.LastError = lastError
	d.LastErrorAt = &at
	return nil
}

type fakeMediaAssets struct {
	assets map[string]*models.MediaAsset
}

func newFakeMediaAssets(assets ...*models.MediaAsset) *fakeMediaAssets {
	f := &fakeMediaAssets{assets: map[string]*models.MediaAsset{}}
	for _, a := range assets {
		f.assets[a.ID] = a
	}
	return f
}

func (f *fakeMediaAssets) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) error {
	c := *ma
	f.assets[ma.ID] = &c
	return nil
}

func (f *fakeMediaAssets) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	a, ok := f.assets[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (f *fakeMediaAssets) CheckByUserID(ctx context.Context, id string, userID int64) (bool, error) {
	a, ok := f.assets[id]
	return ok && a.UserID == userID, nil
}

// scriptedAdapter fails the upload phase with the next queued error and
// succeeds once the queue is empty.
type scriptedAdapter struct {
	platform    models.Platform
	uploadErrs  []error
	finalizeErr error
	uploads     int
	finalizes   int
}

func (a *scriptedAdapter) Platform() models.Platform { return a.platform }

func (a *scriptedAdapter) Upload(ctx context.Context, params platforms.PublishParams) (*platforms.UploadResult, error) {
	a.uploads++
	if len(a.uploadErrs) > 0 {
		err := a.uploadErrs[0]
		a.uploadErrs = a.uploadErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	id := fmt.Sprintf("%s-ext-%d", a.platform, a.uploads)
	return &platforms.UploadResult{ExternalMediaID: id, ExternalPostID: id}, nil
}

func (a *scriptedAdapter) Finalize(ctx context.Context, params platforms.PublishParams, upload *platforms.UploadResult) (*platforms.PublishResult, error) {
	a.finalizes++
	if a.finalizeErr != nil {
		return nil, a.finalizeErr
	}
	return &platforms.PublishResult{ExternalPostID: upload.ExternalPostID, ExternalMediaID: upload.ExternalMediaID}, nil
}

type enqueueCall struct {
	jobID       string
	maxAttempts int
	delay       time.Duration
}

type fakeEnqueuer struct {
	calls []enqueueCall
	err   error
}

func (f *fakeEnqueuer) EnqueuePublish(ctx context.Context, jobID string, maxAttempts int, delay time.Duration) error {
	f.calls = append(f.calls, enqueueCall{jobID: jobID, maxAttempts: maxAttempts, delay: delay})
	return f.err
}
