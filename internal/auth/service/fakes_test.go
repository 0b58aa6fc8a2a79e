package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"saasgate/backend/internal/activity"
	activitydomain "saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/auth/domain"
	identitydomain "saasgate/backend/internal/identity/domain"
	invitationdomain "saasgate/backend/internal/invitation/domain"
	membershipdomain "saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/policy/engine"
	"saasgate/backend/internal/security"
	sessionrepo "saasgate/backend/internal/session/repository"
	sessionservice "saasgate/backend/internal/session/service"
	userdomain "saasgate/backend/internal/user/domain"
)

var errStore = errors.New("store unavailable")

type memUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*userdomain.User
	createErr error
}

func (r *memUserRepo) active(id string) *userdomain.User {
	u, ok := r.byID[id]
	if !ok || !u.IsActive() {
		return nil
	}
	return u
}

func (r *memUserRepo) emailTaken(email, exceptID string) bool {
	for _, u := range r.byID {
		if u.IsActive() && u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.active(id); u != nil {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.IsActive() && u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.emailTaken(u.Email, "") {
		return userdomain.ErrEmailTaken
	}
	c := *u
	r.byID[u.ID] = &c
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.active(u.ID)
	if cur == nil {
		return userdomain.ErrAccountDeleted
	}
	if r.emailTaken(u.Email, u.ID) {
		return userdomain.ErrEmailTaken
	}
	cur.Name = u.Name
	cur.Email = u.Email
	return nil
}

func (r *memUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.active(id)
	if cur == nil {
		return userdomain.ErrAccountDeleted
	}
	cur.PasswordHash = hash
	return nil
}

func (r *memUserRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.active(id)
	if cur == nil {
		return userdomain.ErrAccountDeleted
	}
	cur.DeletedAt = &at
	return nil
}

func (r *memUserRepo) UpsertFederated(ctx context.Context, u *userdomain.User) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.active(u.ID); cur != nil {
		cur.Email = u.Email
		if u.Name != "" {
			cur.Name = u.Name
		}
		c := *cur
		return &c, nil
	}
	c := *u
	r.byID[u.ID] = &c
	out := c
	return &out, nil
}

type memMembershipRepo struct {
	mu    sync.Mutex
	byID  map[string]*membershipdomain.Membership
	users *memUserRepo
	err   error
}

// GetForUser returns the earliest membership by JoinedAt then ID, as the SQL does.
func (r *memMembershipRepo) GetForUser(ctx context.Context, userID string) (*membershipdomain.Membership, error) {
	ms, err := r.ListForUser(ctx, userID)
	if err != nil || len(ms) == 0 {
		return nil, err
	}
	return ms[0], nil
}

func (r *memMembershipRepo) ListForUser(ctx context.Context, userID string) ([]*membershipdomain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*membershipdomain.Membership
	for _, m := range r.byID {
		if m.UserID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memMembershipRepo) GetByIDAndTeam(ctx context.Context, id, teamID string) (*membershipdomain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byID[id]; ok && m.TeamID == teamID {
		c := *m
		return &c, nil
	}
	return nil, nil
}

func (r *memMembershipRepo) IsMemberByEmail(ctx context.Context, teamID, email string) (bool, error) {
	u, err := r.users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byID {
		if m.TeamID == teamID && m.UserID == u.ID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMembershipRepo) Create(ctx context.Context, m *membershipdomain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.byID {
		if cur.UserID == m.UserID && cur.TeamID == m.TeamID {
			return membershipdomain.ErrAlreadyMember
		}
	}
	c := *m
	r.byID[m.ID] = &c
	return nil
}

func (r *memMembershipRepo) DeleteByIDAndTeam(ctx context.Context, id, teamID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byID[id]; ok && m.TeamID == teamID {
		delete(r.byID, id)
		return true, nil
	}
	return false, nil
}

func (r *memMembershipRepo) DeleteByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.byID {
		if m.UserID == userID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *memMembershipRepo) CountOwnersByTeam(ctx context.Context, teamID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.byID {
		if m.TeamID == teamID && m.IsOwner() {
			n++
		}
	}
	return n, nil
}

func (r *memMembershipRepo) CountByTeam(ctx context.Context, teamID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.byID {
		if m.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (r *memMembershipRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type memInvitationRepo struct {
	mu   sync.Mutex
	byID map[string]*invitationdomain.Invitation
}

func (r *memInvitationRepo) GetByID(ctx context.Context, id string) (*invitationdomain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.byID[id]; ok {
		c := *inv
		return &c, nil
	}
	return nil, nil
}

func (r *memInvitationRepo) GetPending(ctx context.Context, teamID, email string) (*invitationdomain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.byID {
		if inv.TeamID == teamID && inv.Email == email && inv.Status == invitationdomain.StatusPending {
			c := *inv
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memInvitationRepo) Create(ctx context.Context, inv *invitationdomain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.byID {
		if cur.TeamID == inv.TeamID && cur.Email == inv.Email && cur.Status == invitationdomain.StatusPending {
			return invitationdomain.ErrDuplicatePending
		}
	}
	c := *inv
	r.byID[inv.ID] = &c
	return nil
}

func (r *memInvitationRepo) MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok || inv.Status != invitationdomain.StatusPending {
		return false, nil
	}
	inv.Status = invitationdomain.StatusAccepted
	inv.AcceptedAt = &at
	return true, nil
}

// memActivityRepo backs a real activity.Logger.
type memActivityRepo struct {
	mu      sync.Mutex
	entries []*activitydomain.Entry
	err     error
}

func (r *memActivityRepo) Create(ctx context.Context, e *activitydomain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *memActivityRepo) ListByTeam(ctx context.Context, teamID string, limit int) ([]*activitydomain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*activitydomain.Entry
	for _, e := range r.entries {
		if e.TeamID == teamID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memActivityRepo) actions() []activitydomain.ActionType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]activitydomain.ActionType, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *memActivityRepo) has(action activitydomain.ActionType) *activitydomain.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Action == action {
			return e
		}
	}
	return nil
}

type fakeIdentity struct {
	mu        sync.Mutex
	taken     map[string]bool
	emails    map[string]string // external id -> email
	deleted   []string
	ident     *identitydomain.Identity
	beginErr  error
	signUpErr error
	deleteErr error
	callbacks []string
}

func (f *fakeIdentity) BeginOAuth(ctx context.Context, provider, callbackURL string) (identitydomain.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beginErr != nil {
		return identitydomain.Flow{}, f.beginErr
	}
	f.callbacks = append(f.callbacks, callbackURL)
	return identitydomain.Flow{URL: "https://idp.example.com/authorize?provider=" + provider, Verifier: "verifier-1"}, nil
}

func (f *fakeIdentity) ExchangeCode(ctx context.Context, code, verifier string) (*identitydomain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code != "good-code" || verifier != "verifier-1" || f.ident == nil {
		return nil, errors.New("invalid grant")
	}
	c := *f.ident
	return &c, nil
}

func (f *fakeIdentity) SignUpWithPassword(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signUpErr != nil {
		return "", f.signUpErr
	}
	if f.taken[email] {
		return "", identitydomain.ErrIdentityConflict
	}
	id := uuid.New().String()
	f.taken[email] = true
	if f.emails == nil {
		f.emails = map[string]string{}
	}
	f.emails[id] = email
	return id, nil
}

func (f *fakeIdentity) DeleteIdentity(ctx context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, externalID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if email, ok := f.emails[externalID]; ok {
		delete(f.taken, email)
		delete(f.emails, externalID)
	}
	return nil
}

type fakeCheckout struct {
	err error
}

func (f fakeCheckout) CheckoutRedirect(ctx context.Context, userID, priceID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://checkout.stripe.test/" + priceID, nil
}

var testHasher = security.NewHasher(security.HashParams{Memory: 1024, Time: 1, Threads: 1})

type harness struct {
	svc         *Service
	users       *memUserRepo
	memberships *memMembershipRepo
	invitations *memInvitationRepo
	activity    *memActivityRepo
	identity    *fakeIdentity
	sessions    *sessionservice.Resolver
	denylist    *sessionrepo.MemoryDenylist
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	codec, err := security.NewTestSessionCodec()
	if err != nil {
		t.Fatalf("NewTestSessionCodec: %v", err)
	}
	authz, err := engine.NewOPAEvaluator(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	users := &memUserRepo{byID: map[string]*userdomain.User{}}
	h := &harness{
		users:       users,
		memberships: &memMembershipRepo{byID: map[string]*membershipdomain.Membership{}, users: users},
		invitations: &memInvitationRepo{byID: map[string]*invitationdomain.Invitation{}},
		activity:    &memActivityRepo{},
		identity:    &fakeIdentity{taken: map[string]bool{}},
		denylist:    sessionrepo.NewMemoryDenylist(),
	}
	h.sessions = sessionservice.NewResolver(codec, h.denylist, nil)
	h.svc = NewService(Deps{
		Users:       h.users,
		Memberships: h.memberships,
		Invitations: h.invitations,
		Activity:    activity.NewLogger(h.activity, nil),
		Hasher:      testHasher,
		Sessions:    h.sessions,
		Identity:    h.identity,
		Checkout:    fakeCheckout{},
		Authorizer:  authz,
	}, Options{BaseURL: "https://app.example.com", Timeout: 5 * time.Second})
	return h
}

// addUser stores an active user. An empty password makes an OAuth-only account.
func (h *harness) addUser(t *testing.T, email, password string) *userdomain.User {
	t.Helper()
	u := &userdomain.User{ID: uuid.New().String(), Email: email, Role: userdomain.RoleMember}
	if password != "" {
		hash, err := testHasher.Hash([]byte(password))
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		u.PasswordHash = hash
	}
	if err := h.users.Create(context.Background(), u); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}

func (h *harness) join(t *testing.T, userID, teamID string, role membershipdomain.Role) *membershipdomain.Membership {
	t.Helper()
	m := &membershipdomain.Membership{ID: uuid.New().String(), UserID: userID, TeamID: teamID, Role: role, JoinedAt: time.Now()}
	if err := h.memberships.Create(context.Background(), m); err != nil {
		t.Fatalf("Create membership: %v", err)
	}
	return m
}

// signedIn returns request metadata carrying a fresh session for userID.
func (h *harness) signedIn(t *testing.T, userID string) domain.RequestMeta {
	t.Helper()
	tok, err := h.sessions.Issue(context.Background(), userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return domain.RequestMeta{IPAddress: "203.0.113.7", SessionToken: tok.Value}
}
