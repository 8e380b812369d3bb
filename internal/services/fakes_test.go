package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/auth"
	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
)

var errFakeNotFound = errors.New("not found")

// In-memory store fakes for deterministic service tests. They mirror the
// PostgreSQL repositories' observable behavior, including the partial
// unique index on live multi-use links.

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeLinkStore struct {
	mu     sync.Mutex
	nextID int64
	links  map[int64]*models.MagicLink

	// extendErr injects per-link ExtendExpiry failures.
	extendErr map[int64]error
}

func newFakeLinkStore() *fakeLinkStore {
	return &fakeLinkStore{links: make(map[int64]*models.MagicLink)}
}

func (f *fakeLinkStore) Create(_ context.Context, link *models.MagicLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !link.IsSingleUse {
		for _, existing := range f.links {
			if !existing.IsSingleUse && existing.RevokedAt == nil &&
				existing.TenantID == link.TenantID &&
				existing.ClientID == link.ClientID &&
				existing.Purpose == link.Purpose {
				return ErrDuplicateActiveLink
			}
		}
	}

	f.nextID++
	link.ID = f.nextID
	cp := *link
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeLinkStore) GetByID(_ context.Context, id int64) (*models.MagicLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[id]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *link
	return &cp, nil
}

func (f *fakeLinkStore) GetByToken(_ context.Context, token string) (*models.MagicLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.Token == token {
			cp := *link
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeLinkStore) FindCurrent(_ context.Context, tenantID, clientID int64, purpose string) (*models.MagicLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var current *models.MagicLink
	for _, link := range f.links {
		if link.IsSingleUse || link.RevokedAt != nil {
			continue
		}
		if link.TenantID != tenantID || link.ClientID != clientID || link.Purpose != purpose {
			continue
		}
		if current == nil || link.ID > current.ID {
			current = link
		}
	}
	if current == nil {
		return nil, nil
	}
	cp := *current
	return &cp, nil
}

func (f *fakeLinkStore) Update(_ context.Context, link *models.MagicLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.links[link.ID]
	if !ok {
		return errFakeNotFound
	}
	token := stored.Token
	cp := *link
	cp.Token = token
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeLinkStore) MarkUsed(_ context.Context, id int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[id]
	if !ok {
		return errFakeNotFound
	}
	if link.UsedAt == nil {
		at := now
		link.UsedAt = &at
	}
	at := now
	link.LastAccessedAt = &at
	link.AccessCount++
	return nil
}

func (f *fakeLinkStore) Revoke(_ context.Context, id int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[id]
	if !ok {
		return errFakeNotFound
	}
	if link.RevokedAt == nil {
		at := now
		link.RevokedAt = &at
	}
	return nil
}

func (f *fakeLinkStore) RevokeAllForClient(_ context.Context, tenantID, clientID int64, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, link := range f.links {
		if link.TenantID == tenantID && link.ClientID == clientID && link.RevokedAt == nil {
			at := now
			link.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeLinkStore) ListByTenant(_ context.Context, tenantID int64) ([]*models.MagicLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MagicLink
	for _, link := range f.links {
		if link.TenantID == tenantID {
			cp := *link
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLinkStore) ListExpiringBetween(_ context.Context, tenantID int64, from, to time.Time) ([]*models.MagicLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MagicLink
	for _, link := range f.links {
		if link.TenantID != tenantID || link.RevokedAt != nil {
			continue
		}
		if !link.ExpiresAt.Before(from) && link.ExpiresAt.Before(to) {
			cp := *link
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLinkStore) ExtendExpiry(_ context.Context, id int64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.extendErr[id]; err != nil {
		return err
	}
	link, ok := f.links[id]
	if !ok {
		return errFakeNotFound
	}
	link.ExpiresAt = expiresAt
	return nil
}

func (f *fakeLinkStore) DeleteExpiredBefore(_ context.Context, tenantID int64, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, link := range f.links {
		if link.TenantID == tenantID && link.ExpiresAt.Before(cutoff) {
			delete(f.links, id)
			n++
		}
	}
	return n, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*models.CustomerSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[int64]*models.CustomerSession)}
}

func (f *fakeSessionStore) Create(_ context.Context, session *models.CustomerSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	session.ID = f.nextID
	cp := *session
	cp.QuoteIDs = append([]int64{}, session.QuoteIDs...)
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) get(id int64) (*models.CustomerSession, bool) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *session
	cp.QuoteIDs = append([]int64{}, session.QuoteIDs...)
	return &cp, true
}

func (f *fakeSessionStore) GetByID(_ context.Context, id int64) (*models.CustomerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.get(id)
	if !ok {
		return nil, nil
	}
	return session, nil
}

func (f *fakeSessionStore) GetByToken(_ context.Context, token string) (*models.CustomerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, session := range f.sessions {
		if session.SessionToken == token {
			cp, _ := f.get(id)
			return cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) FindActiveByClient(_ context.Context, tenantID, clientID int64, now time.Time) (*models.CustomerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *models.CustomerSession
	for _, session := range f.sessions {
		if session.TenantID != tenantID || session.ClientID != clientID {
			continue
		}
		if session.RevokedAt != nil || !session.ExpiresAt.After(now) {
			continue
		}
		if found == nil || session.ID > found.ID {
			found = session
		}
	}
	if found == nil {
		return nil, nil
	}
	cp, _ := f.get(found.ID)
	return cp, nil
}

func (f *fakeSessionStore) SetQuoteIDs(_ context.Context, id int64, quoteIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return errFakeNotFound
	}
	session.QuoteIDs = append([]int64{}, quoteIDs...)
	return nil
}

func (f *fakeSessionStore) MarkVerified(_ context.Context, id int64, method string, quoteIDs []int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return errFakeNotFound
	}
	at := now
	session.IsVerified = true
	session.VerifiedAt = &at
	session.VerificationMethod = method
	session.QuoteIDs = append([]int64{}, quoteIDs...)
	return nil
}

func (f *fakeSessionStore) TouchActivity(_ context.Context, id int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return errFakeNotFound
	}
	session.LastActivityAt = now
	session.ActivityCount++
	return nil
}

func (f *fakeSessionStore) Revoke(_ context.Context, id int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return errFakeNotFound
	}
	if session.RevokedAt == nil {
		at := now
		session.RevokedAt = &at
	}
	return nil
}

func (f *fakeSessionStore) RevokeAllForClient(_ context.Context, tenantID, clientID int64, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, session := range f.sessions {
		if session.TenantID == tenantID && session.ClientID == clientID && session.RevokedAt == nil {
			at := now
			session.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) ListByTenant(_ context.Context, tenantID int64) ([]*models.CustomerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CustomerSession
	for id, session := range f.sessions {
		if session.TenantID == tenantID {
			cp, _ := f.get(id)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSessionStore) ListRecentByClient(_ context.Context, tenantID, clientID int64, limit int) ([]*models.CustomerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CustomerSession
	for id, session := range f.sessions {
		if session.TenantID == tenantID && session.ClientID == clientID {
			cp, _ := f.get(id)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSessionStore) DeleteExpiredBefore(_ context.Context, tenantID int64, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, session := range f.sessions {
		if session.TenantID == tenantID && session.ExpiresAt.Before(cutoff) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeOTPStore struct {
	mu     sync.Mutex
	nextID int64
	otps   map[int64]*models.OTPVerification

	// nowFn stamps created_at the way the database default would.
	nowFn func() time.Time
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{otps: make(map[int64]*models.OTPVerification), nowFn: time.Now}
}

func (f *fakeOTPStore) Create(_ context.Context, otp *models.OTPVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	otp.ID = f.nextID
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = f.nowFn()
	}
	cp := *otp
	f.otps[otp.ID] = &cp
	return nil
}

func (f *fakeOTPStore) GetLatestBySession(_ context.Context, sessionID int64) (*models.OTPVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.OTPVerification
	for _, otp := range f.otps {
		if otp.CustomerSessionID != sessionID {
			continue
		}
		if latest == nil || otp.ID > latest.ID {
			latest = otp
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeOTPStore) IncrementAttempts(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[id]
	if !ok {
		return errFakeNotFound
	}
	otp.AttemptCount++
	return nil
}

func (f *fakeOTPStore) MarkVerified(_ context.Context, id int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[id]
	if !ok {
		return errFakeNotFound
	}
	at := now
	otp.VerifiedAt = &at
	return nil
}

func (f *fakeOTPStore) MarkLocked(_ context.Context, id int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[id]
	if !ok {
		return errFakeNotFound
	}
	at := now
	otp.LockedAt = &at
	return nil
}

func (f *fakeOTPStore) CountRecentByClient(_ context.Context, tenantID, clientID int64, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, otp := range f.otps {
		if otp.TenantID == tenantID && otp.ClientID == clientID && otp.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeOTPStore) ListRecentByTenant(_ context.Context, tenantID int64, limit int) ([]*models.OTPVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.OTPVerification
	for _, otp := range f.otps {
		if otp.TenantID == tenantID && otp.VerifiedAt != nil {
			cp := *otp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeOTPStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, otp := range f.otps {
		if otp.CreatedAt.Before(cutoff) {
			delete(f.otps, id)
			n++
		}
	}
	return n, nil
}

type fakeClientStore struct {
	clients map[int64]*models.Client
	quotes  map[int64][]int64
}

func newFakeClientStore() *fakeClientStore {
	return &fakeClientStore{
		clients: make(map[int64]*models.Client),
		quotes:  make(map[int64][]int64),
	}
}

func (f *fakeClientStore) addClient(id, tenantID int64, email, phone string, quoteIDs ...int64) {
	f.clients[id] = &models.Client{ID: id, TenantID: tenantID, Name: "Test Client", Email: email, Phone: phone}
	f.quotes[id] = quoteIDs
}

func (f *fakeClientStore) Get(_ context.Context, tenantID, clientID int64) (*models.Client, error) {
	client, ok := f.clients[clientID]
	if !ok || client.TenantID != tenantID {
		return nil, ErrClientNotFound
	}
	cp := *client
	return &cp, nil
}

func (f *fakeClientStore) ListQuoteIDs(_ context.Context, tenantID, clientID int64) ([]int64, error) {
	client, ok := f.clients[clientID]
	if !ok || client.TenantID != tenantID {
		return nil, ErrClientNotFound
	}
	return append([]int64{}, f.quotes[clientID]...), nil
}

type fakeTenantStore struct {
	settings map[int64]*models.TenantPortalSettings
	errFor   map[int64]error
}

func newFakeTenantStore() *fakeTenantStore {
	return &fakeTenantStore{
		settings: make(map[int64]*models.TenantPortalSettings),
		errFor:   make(map[int64]error),
	}
}

func (f *fakeTenantStore) addTenant(id int64, defaultDays, maxDays int) {
	f.settings[id] = &models.TenantPortalSettings{
		TenantID:           id,
		DefaultExpiryDays:  defaultDays,
		MaxExpiryDays:      maxDays,
		AutoCleanupEnabled: true,
		AutoCleanupDays:    30,
	}
}

func (f *fakeTenantStore) GetPortalSettings(_ context.Context, tenantID int64) (*models.TenantPortalSettings, error) {
	if err := f.errFor[tenantID]; err != nil {
		return nil, err
	}
	settings, ok := f.settings[tenantID]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *settings
	return &cp, nil
}

func (f *fakeTenantStore) ListTenantIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	for id := range f.settings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// testEnv wires the service graph onto in-memory fakes with a fixed clock.
type testEnv struct {
	now      time.Time
	links    *fakeLinkStore
	sessions *fakeSessionStore
	otps     *fakeOTPStore
	clients  *fakeClientStore
	tenants  *fakeTenantStore

	policy         *ExpiryPolicy
	sessionService *SessionService
	linkService    *LinkService
	otpService     *OTPService
}

func newTestEnv(now time.Time) *testEnv {
	env := &testEnv{
		now:      now,
		links:    newFakeLinkStore(),
		sessions: newFakeSessionStore(),
		otps:     newFakeOTPStore(),
		clients:  newFakeClientStore(),
		tenants:  newFakeTenantStore(),
	}

	env.tenants.addTenant(1, 7, 90)
	env.clients.addClient(10, 1, "client@example.com", "+15550100", 100, 101, 102)

	env.policy = NewExpiryPolicy(env.tenants)
	env.policy.Now = fixedClock(now)

	tokens := auth.NewSessionTokenManager("test-secret", "test", 90)
	env.sessionService = NewSessionService(env.sessions, tokens)
	env.sessionService.Now = fixedClock(now)

	env.linkService = NewLinkService(env.links, env.clients, env.policy, env.sessionService, "https://portal.test")
	env.linkService.Now = fixedClock(now)

	env.otps.nowFn = fixedClock(now)
	env.otpService = NewOTPService(env.otps, env.sessions, env.clients, env.policy)
	env.otpService.Now = fixedClock(now)

	return env
}

// advance moves every injected clock forward.
func (env *testEnv) advance(d time.Duration) {
	env.now = env.now.Add(d)
	clock := fixedClock(env.now)
	env.policy.Now = clock
	env.sessionService.Now = clock
	env.linkService.Now = clock
	env.otpService.Now = clock
	env.otps.nowFn = clock
}
