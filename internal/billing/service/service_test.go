package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"saasgate/backend/internal/billing/domain"
	membershipdomain "saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/security"
	teamdomain "saasgate/backend/internal/team/domain"
	userdomain "saasgate/backend/internal/user/domain"
)

type fakeGateway struct {
	mu        sync.Mutex
	created   []string
	result    *domain.CheckoutResult
	createErr error
	resultErr error
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, team *teamdomain.Team, userID, priceID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.created = append(g.created, team.ID+":"+userID+":"+priceID)
	return "https://checkout.stripe.test/" + priceID, nil
}

func (g *fakeGateway) CheckoutResult(ctx context.Context, sessionID string) (*domain.CheckoutResult, error) {
	if g.resultErr != nil {
		return nil, g.resultErr
	}
	return g.result, nil
}

type memUsers struct{ users map[string]*userdomain.User }

func (m *memUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	return m.users[id], nil
}

type memMemberships struct{ byUser map[string]*membershipdomain.Membership }

func (m *memMemberships) GetForUser(ctx context.Context, userID string) (*membershipdomain.Membership, error) {
	return m.byUser[userID], nil
}

type memTeams struct {
	mu    sync.Mutex
	teams map[string]*teamdomain.Team
	err   error
}

func (m *memTeams) GetByID(ctx context.Context, id string) (*teamdomain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teams[id], nil
}

func (m *memTeams) UpdateSubscription(ctx context.Context, teamID string, sub teamdomain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	t := m.teams[teamID]
	t.StripeCustomerID = sub.CustomerID
	t.StripeSubscriptionID = sub.SubscriptionID
	t.StripeProductID = sub.ProductID
	t.PlanName = sub.PlanName
	t.SubscriptionStatus = sub.Status
	return nil
}

type codecIssuer struct{ codec *security.SessionCodec }

func (c codecIssuer) Issue(_ context.Context, userID string) (security.Token, error) {
	return c.codec.Issue(userID)
}

func newTestService(t *testing.T, g *fakeGateway) (*Service, *memTeams) {
	t.Helper()
	codec, err := security.NewTestSessionCodec()
	if err != nil {
		t.Fatal(err)
	}
	teams := &memTeams{teams: map[string]*teamdomain.Team{"team-1": {ID: "team-1", Name: "Acme"}}}
	users := &memUsers{users: map[string]*userdomain.User{
		"user-1": {ID: "user-1", Email: "a@example.com"},
		"loner":  {ID: "loner", Email: "l@example.com"},
	}}
	members := &memMemberships{byUser: map[string]*membershipdomain.Membership{
		"user-1": {ID: "m1", UserID: "user-1", TeamID: "team-1", Role: membershipdomain.RoleOwner},
	}}
	return NewService(g, users, members, teams, codecIssuer{codec}, nil, 0), teams
}

func TestCheckoutRedirect(t *testing.T) {
	g := &fakeGateway{}
	s, _ := newTestService(t, g)
	got, err := s.CheckoutRedirect(context.Background(), "user-1", "price_1")
	if err != nil {
		t.Fatalf("CheckoutRedirect: %v", err)
	}
	if got != "https://checkout.stripe.test/price_1" {
		t.Errorf("redirect = %q", got)
	}
	if len(g.created) != 1 || g.created[0] != "team-1:user-1:price_1" {
		t.Errorf("created = %v", g.created)
	}
}

func TestCheckoutRedirect_TeamlessGoesToSignUp(t *testing.T) {
	g := &fakeGateway{}
	s, _ := newTestService(t, g)
	got, err := s.CheckoutRedirect(context.Background(), "loner", "price_1")
	if err != nil {
		t.Fatalf("CheckoutRedirect: %v", err)
	}
	if got != "/sign-up?redirect=checkout&priceId=price_1" {
		t.Errorf("redirect = %q", got)
	}
	if len(g.created) != 0 {
		t.Error("no checkout session should be created")
	}
}

func TestCompleteCheckout(t *testing.T) {
	sub := teamdomain.Subscription{CustomerID: "cus_1", SubscriptionID: "sub_1", ProductID: "prod_1", PlanName: "Plus", Status: "active"}
	s, teams := newTestService(t, &fakeGateway{result: &domain.CheckoutResult{UserID: "user-1", Subscription: sub}})

	res := s.CompleteCheckout(context.Background(), "cs_1")
	if res.Redirect != "/dashboard" {
		t.Fatalf("redirect = %q", res.Redirect)
	}
	if res.Session == nil || res.Session.Value == "" {
		t.Error("a session should be issued")
	}
	team := teams.teams["team-1"]
	if team.StripeCustomerID != "cus_1" || team.PlanName != "Plus" || team.SubscriptionStatus != "active" {
		t.Errorf("team = %+v", team)
	}
}

func TestCompleteCheckout_Failures(t *testing.T) {
	sub := teamdomain.Subscription{CustomerID: "cus_1"}
	tests := []struct {
		name      string
		sessionID string
		gateway   *fakeGateway
		teamErr   error
		want      string
	}{
		{"missing session id", "", &fakeGateway{}, nil, "/pricing"},
		{"gateway error", "cs_1", &fakeGateway{resultErr: errors.New("stripe down")}, nil, "/error"},
		{"unknown user", "cs_1", &fakeGateway{result: &domain.CheckoutResult{UserID: "ghost", Subscription: sub}}, nil, "/error"},
		{"teamless user", "cs_1", &fakeGateway{result: &domain.CheckoutResult{UserID: "loner", Subscription: sub}}, nil, "/error"},
		{"store error", "cs_1", &fakeGateway{result: &domain.CheckoutResult{UserID: "user-1", Subscription: sub}}, errors.New("db"), "/error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, teams := newTestService(t, tt.gateway)
			teams.err = tt.teamErr
			res := s.CompleteCheckout(context.Background(), tt.sessionID)
			if res.Redirect != tt.want {
				t.Errorf("redirect = %q, want %q", res.Redirect, tt.want)
			}
			if res.Session != nil {
				t.Error("no session on failure")
			}
			if teams.teams["team-1"].StripeCustomerID != "" {
				t.Error("team should not be updated on failure")
			}
		})
	}
}
