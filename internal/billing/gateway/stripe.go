// Package gateway creates and reads Stripe checkout sessions.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"saasgate/backend/internal/billing/domain"
	teamdomain "saasgate/backend/internal/team/domain"
)

// CheckoutSessions is the subset of the Stripe checkout session client used here.
type CheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Subscriptions is the subset of the Stripe subscription client used here.
type Subscriptions interface {
	Get(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

// Stripe implements the billing gateway over the Stripe API.
type Stripe struct {
	sessions      CheckoutSessions
	subscriptions Subscriptions
	baseURL       string
	trialDays     int64
}

// NewStripe returns a gateway with its own API client for secretKey.
func NewStripe(secretKey, baseURL string, trialDays int64) *Stripe {
	api := client.New(secretKey, nil)
	return NewStripeWithClients(api.CheckoutSessions, api.Subscriptions, baseURL, trialDays)
}

// NewStripeWithClients wires explicit clients. Used by tests.
func NewStripeWithClients(sessions CheckoutSessions, subs Subscriptions, baseURL string, trialDays int64) *Stripe {
	return &Stripe{
		sessions:      sessions,
		subscriptions: subs,
		baseURL:       strings.TrimRight(baseURL, "/"),
		trialDays:     trialDays,
	}
}

// CreateCheckoutSession starts a subscription checkout for priceID and returns the hosted page URL.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, team *teamdomain.Team, userID, priceID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:          stripe.String(s.baseURL + "/api/stripe/checkout?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:           stripe.String(s.baseURL + "/pricing"),
		ClientReferenceID:   stripe.String(userID),
		AllowPromotionCodes: stripe.Bool(true),
	}
	if s.trialDays > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(s.trialDays),
		}
	}
	if team != nil && team.StripeCustomerID != "" {
		params.Customer = stripe.String(team.StripeCustomerID)
	}
	params.Context = ctx
	sess, err := s.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if sess.URL == "" {
		return "", fmt.Errorf("stripe: checkout session %s has no url", sess.ID)
	}
	return sess.URL, nil
}

// CheckoutResult reads a completed session and the subscription it created.
func (s *Stripe) CheckoutResult(ctx context.Context, sessionID string) (*domain.CheckoutResult, error) {
	sp := &stripe.CheckoutSessionParams{}
	sp.Context = ctx
	sp.AddExpand("customer")
	sp.AddExpand("subscription")
	sess, err := s.sessions.Get(sessionID, sp)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	if sess.Customer == nil || sess.Customer.ID == "" {
		return nil, fmt.Errorf("%w: no customer", domain.ErrIncompleteCheckout)
	}
	if sess.Subscription == nil || sess.Subscription.ID == "" {
		return nil, fmt.Errorf("%w: no subscription", domain.ErrIncompleteCheckout)
	}
	if sess.ClientReferenceID == "" {
		return nil, fmt.Errorf("%w: no client reference", domain.ErrIncompleteCheckout)
	}

	subp := &stripe.SubscriptionParams{}
	subp.Context = ctx
	subp.AddExpand("items.data.price.product")
	sub, err := s.subscriptions.Get(sess.Subscription.ID, subp)
	if err != nil {
		return nil, fmt.Errorf("stripe: get subscription: %w", err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return nil, fmt.Errorf("%w: no plan", domain.ErrIncompleteCheckout)
	}
	product := sub.Items.Data[0].Price.Product
	if product == nil || product.ID == "" {
		return nil, fmt.Errorf("%w: no product", domain.ErrIncompleteCheckout)
	}
	return &domain.CheckoutResult{
		UserID: sess.ClientReferenceID,
		Subscription: teamdomain.Subscription{
			CustomerID:     sess.Customer.ID,
			SubscriptionID: sub.ID,
			ProductID:      product.ID,
			PlanName:       product.Name,
			Status:         string(sub.Status),
		},
	}, nil
}
