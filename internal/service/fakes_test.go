package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"storefront/internal/entitlement"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
)

var errStore = errors.New("store unavailable")

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	err      error
}

func newFakeProfiles(ps ...model.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[string]*model.Profile{}}
	for i := range ps {
		p := ps[i]
		f.profiles[p.ID] = &p
	}
	return f
}

func (f *fakeProfiles) Create(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.profiles[p.ID]; !ok {
		cp := *p
		f.profiles[p.ID] = &cp
	}
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Update(_ context.Context, id, name string, image *string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Name = name
	if image != nil {
		p.ProfileImage = image
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) SetSuspended(_ context.Context, id string, suspended bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsSuspended = suspended
	return nil
}

func (f *fakeProfiles) List(_ context.Context) ([]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeSubs struct {
	mu         sync.Mutex
	subs       map[string]*model.Subscription
	err        error
	activated  []model.SubscriptionActivation
	lastCutoff time.Time
}

func newFakeSubs(ss ...model.Subscription) *fakeSubs {
	f := &fakeSubs{subs: map[string]*model.Subscription{}}
	for i := range ss {
		s := ss[i]
		f.subs[s.UserID] = &s
	}
	return f
}

func (f *fakeSubs) GetByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.subs[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubs) Activate(_ context.Context, a model.SubscriptionActivation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.activated = append(f.activated, a)
	status := "active"
	start, end := a.PeriodStart, a.PeriodEnd
	subID, plan := a.SubscriptionID, a.PlanName
	f.subs[a.UserID] = &model.Subscription{
		UserID:             a.UserID,
		SubscriptionID:     &subID,
		PlanName:           &plan,
		Status:             &status,
		CreatedAt:          a.PeriodStart,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
	return nil
}

func (f *fakeSubs) MarkCancelledByProcessor(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	s, ok := f.subs[userID]
	if !ok {
		s = &model.Subscription{UserID: userID}
		f.subs[userID] = s
	}
	status := "canceled"
	s.Status = &status
	s.IsCancelled = true
	s.CancelledAt = &at
	return nil
}

func (f *fakeSubs) RequestCancellation(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	s, ok := f.subs[userID]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsCancelled = true
	s.CancelledAt = &at
	return nil
}

func (f *fakeSubs) ExpireLapsed(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.lastCutoff = cutoff
	var n int64
	for _, s := range f.subs {
		if s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(cutoff) {
			inactive := "inactive"
			s.Status = &inactive
			n++
		}
	}
	return n, nil
}

func (f *fakeSubs) ListAll(_ context.Context) ([]model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Subscription, 0, len(f.subs))
	for _, s := range f.subs {
		out = append(out, *s)
	}
	return out, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	logs      []model.DownloadLog
	readErr   error
	appendErr error
}

func (f *fakeLedger) Append(_ context.Context, e *model.DownloadLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.ID = fmt.Sprintf("log-%d", len(f.logs)+1)
	f.logs = append(f.logs, *e)
	return nil
}

func (f *fakeLedger) ListByUser(_ context.Context, userID string) ([]model.DownloadLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []model.DownloadLog
	for _, l := range f.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListAll(_ context.Context, limit, offset int) ([]model.DownloadLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.DownloadLog, len(f.logs))
	copy(out, f.logs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLedger) CountByUser(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, l := range f.logs {
		counts[l.UserID]++
	}
	return counts, nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logs)
}

type fakeCatalog struct {
	mu       sync.Mutex
	patterns map[string]*model.Pattern
	motion   map[string]*model.MotionVideo
	err      error
	updated  map[string]model.AssetMetadata
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		patterns: map[string]*model.Pattern{},
		motion:   map[string]*model.MotionVideo{},
		updated:  map[string]model.AssetMetadata{},
	}
}

func (f *fakeCatalog) ListPatterns(_ context.Context, _ model.CatalogFilter) ([]model.Pattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Pattern
	for _, p := range f.patterns {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeCatalog) GetPattern(_ context.Context, id string) (*model.Pattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.patterns[entitlement.NormalizeAssetID(id)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) CreatePattern(_ context.Context, p *model.Pattern) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	p.CreatedAt = time.Now().UTC()
	cp := *p
	f.patterns[p.ID] = &cp
	return nil
}

func (f *fakeCatalog) DeletePattern(_ context.Context, id string) (*model.Pattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patterns[entitlement.NormalizeAssetID(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.patterns, p.ID)
	return p, nil
}

func (f *fakeCatalog) ListMotionVideos(_ context.Context, _ model.CatalogFilter) ([]model.MotionVideo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []model.MotionVideo
	for _, m := range f.motion {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeCatalog) GetMotionVideo(_ context.Context, id string) (*model.MotionVideo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.motion[entitlement.NormalizeAssetID(id)]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeCatalog) CreateMotionVideo(_ context.Context, m *model.MotionVideo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	m.CreatedAt = time.Now().UTC()
	cp := *m
	f.motion[m.ID] = &cp
	return nil
}

func (f *fakeCatalog) DeleteMotionVideo(_ context.Context, id string) (*model.MotionVideo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.motion[entitlement.NormalizeAssetID(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.motion, m.ID)
	return m, nil
}

func (f *fakeCatalog) UpdateMetadata(_ context.Context, _ entitlement.AssetType, id string, md model.AssetMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = md
	return nil
}

type blobCall struct {
	Bucket, Key, ContentType string
	Body                     []byte
}

type fakeBlobs struct {
	mu        sync.Mutex
	uploads   []blobCall
	deletes   []blobCall
	signed    []blobCall
	uploadErr error
	signErr   error
}

func (f *fakeBlobs) Upload(_ context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, blobCall{Bucket: bucket, Key: key, ContentType: contentType, Body: buf.Bytes()})
	return "https://proj.supabase.co/storage/v1/object/public/" + bucket + "/" + key, nil
}

func (f *fakeBlobs) SignedURL(_ context.Context, bucket, key, filename string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signErr != nil {
		return "", f.signErr
	}
	f.signed = append(f.signed, blobCall{Bucket: bucket, Key: key, ContentType: filename})
	return fmt.Sprintf("https://signed.example/%s/%s?ttl=%d", bucket, key, int(ttl.Seconds())), nil
}

func (f *fakeBlobs) Delete(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, blobCall{Bucket: bucket, Key: key})
	return nil
}

type publishedEvent struct {
	Type string
	Data any
}

type fakeEvents struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakeEvents) PublishEvent(_ context.Context, eventType string, data any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.events = append(f.events, publishedEvent{Type: eventType, Data: data})
	return fmt.Sprintf("evt-%d", len(f.events)), nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeQueue struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func (f *fakeQueue) Send(_ context.Context, queue string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[string][][]byte{}
	}
	f.sent[queue] = append(f.sent[queue], payload)
	return nil
}

type fakeIdentity struct {
	user  *IdentityUser
	err   error
	calls int
}

func (f *fakeIdentity) SignIn(context.Context, string, string) (*AuthSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIdentity) SignUp(context.Context, string, string, string) (*AuthSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIdentity) GetUser(context.Context, string) (*IdentityUser, error) {
	f.calls++
	return f.user, f.err
}

type fakeDLQ struct {
	saved []*model.DeadLetterMessage
}

func (f *fakeDLQ) Create(_ context.Context, m *model.DeadLetterMessage) error {
	f.saved = append(f.saved, m)
	return nil
}

type recordingMetrics struct {
	metrics.Noop
	mu            sync.Mutex
	fallbacks     []string
	breakerStates []string
	publishes     []bool
}

func (m *recordingMetrics) RecordMetadataFallback(trigger string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, trigger)
}

func (m *recordingMetrics) RecordCircuitBreakerStateChange(_, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakerStates = append(m.breakerStates, state)
}

func (m *recordingMetrics) RecordPublish(_ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishes = append(m.publishes, success)
}
