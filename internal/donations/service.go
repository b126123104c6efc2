package donations

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/schema"
	pkgstripe "github.com/angelmondragon/creatorhub-backend/pkg/stripe"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxReconcileAttempts bounds the re-read loop after a lost conditional
// update. Each lost race means the row moved forward, and the lattice is
// at most two steps deep.
const maxReconcileAttempts = 3

// Service defines donation checkout and reconciliation operations.
type Service interface {
	InitiateCheckout(ctx context.Context, input CheckoutInput) (*models.Donation, error)
	StartCheckout(ctx context.Context, input StartCheckoutInput) (*StartCheckoutResult, error)
	ApplyWebhook(ctx context.Context, event WebhookEvent) (*ApplyResult, error)
	FindByID(ctx context.Context, id types.ObjectID) (*models.Donation, error)
	FindForParticipant(ctx context.Context, actorID, id types.ObjectID) (*models.Donation, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Donation, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Donation, error)
	ListByDonor(ctx context.Context, donorID types.ObjectID, params pagination.Params) (*ListResult, error)
	ListByRecipient(ctx context.Context, recipientID types.ObjectID, params pagination.Params) (*ListResult, error)
	ListByStatus(ctx context.Context, status enums.DonationStatus, params pagination.Params) (*ListResult, error)
}

// CheckoutGateway opens payment sessions with the processor.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req pkgstripe.CheckoutRequest) (*pkgstripe.CheckoutSession, error)
}

// OutcomeRecorder observes reconciliation results.
type OutcomeRecorder interface {
	RecordWebhookOutcome(kind, outcome string)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the donation service. Status events are queued in the
// outbox only when both Tx and Events are set.
type ServiceParams struct {
	Repo     Repository
	Checkout CheckoutGateway
	Metrics  OutcomeRecorder
	Logger   *logger.Logger
	Catalog  config.CatalogConfig
	Stripe   config.StripeConfig
	Tx       txRunner
	Events   outboxPublisher
}

type service struct {
	repo     Repository
	checkout CheckoutGateway
	metrics  OutcomeRecorder
	logg     *logger.Logger
	currency string
	stripe   config.StripeConfig
	tx       txRunner
	events   outboxPublisher
}

// NewService wires donation dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "donations repository required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Catalog.DefaultCurrency))
	if currency == "" {
		currency = config.DefaultCurrency
	}
	return &service{
		repo:     params.Repo,
		checkout: params.Checkout,
		metrics:  params.Metrics,
		logg:     params.Logger,
		currency: currency,
		stripe:   params.Stripe,
		tx:       params.Tx,
		events:   params.Events,
	}, nil
}

func (s *service) InitiateCheckout(ctx context.Context, input CheckoutInput) (*models.Donation, error) {
	donation, err := s.buildDonation(input, true)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, s.translateCreate(ctx, err, donation.StripeSessionID)
	}
	return donation, nil
}

func (s *service) StartCheckout(ctx context.Context, input StartCheckoutInput) (*StartCheckoutResult, error) {
	if s.checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout gateway unavailable")
	}
	donation, err := s.buildDonation(CheckoutInput{
		RecipientID: input.RecipientID,
		Donor:       DonorFrom(input.DonorID, input.DonorEmail),
		Amount:      input.Amount,
		Currency:    input.Currency,
		Message:     input.Message,
		Metadata:    input.Metadata,
	}, false)
	if err != nil {
		return nil, err
	}
	if !donation.Amount.IsPositive() {
		return nil, schema.NewViolation("amount", "must be greater than 0")
	}
	donation.ID = types.NewObjectID()

	session, err := s.checkout.CreateCheckoutSession(ctx, pkgstripe.CheckoutRequest{
		Amount:      donation.Amount,
		Currency:    donation.Currency,
		ProductName: "Donation",
		DonorEmail:  stringValue(donation.DonorEmail),
		SuccessURL:  s.stripe.SuccessURL,
		CancelURL:   s.stripe.CancelURL,
		Metadata: map[string]string{
			"donation_id": donation.ID.Hex(),
			"recipient":   donation.RecipientID.Hex(),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	donation.StripeSessionID = session.ID
	if session.PaymentIntentID != "" {
		intent := session.PaymentIntentID
		donation.StripePaymentIntentID = &intent
	}

	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, s.translateCreate(ctx, err, donation.StripeSessionID)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"donation_id":       donation.ID.Hex(),
			"stripe_session_id": donation.StripeSessionID,
		})
		s.logg.Info(logCtx, "donation checkout started")
	}
	return &StartCheckoutResult{Donation: donation, CheckoutURL: session.URL}, nil
}

// buildDonation validates and normalizes a checkout request into a pending
// row. The session id is only checked when requireSession is set.
func (s *service) buildDonation(input CheckoutInput, requireSession bool) (*models.Donation, error) {
	var check schema.Checker

	check.RequiredID("recipient", input.RecipientID)

	var donorID types.ObjectID
	var donorEmail *string
	switch donor := input.Donor.(type) {
	case IdentifiedDonor:
		check.RequiredID("donor", donor.UserID)
		donorID = donor.UserID
	case AnonymousDonor:
		email := strings.TrimSpace(donor.Email)
		if email == "" {
			check.Add("donorEmail", "is required when donor is absent")
		} else {
			check.Var("donorEmail", email, "email", "must be a valid email address")
			donorEmail = &email
		}
	default:
		check.Add("donorEmail", "is required when donor is absent")
	}

	if input.Amount.IsNegative() {
		check.Add("amount", "must be greater than or equal to 0")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currency
	}
	check.Var("currency", currency, "iso4217", "must be an ISO-4217 currency code")

	sessionID := strings.TrimSpace(input.StripeSessionID)
	if requireSession {
		check.Required("stripeSessionId", sessionID)
	}

	if err := check.Err(); err != nil {
		return nil, err
	}

	metadata := datatypes.JSONMap(input.Metadata)
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}

	return &models.Donation{
		DonorID:         donorID,
		DonorEmail:      donorEmail,
		RecipientID:     input.RecipientID,
		Amount:          input.Amount,
		Currency:        currency,
		StripeSessionID: sessionID,
		Status:          enums.DonationStatusPending,
		Message:         schema.Trim(input.Message),
		Metadata:        metadata,
	}, nil
}

func (s *service) translateCreate(ctx context.Context, err error, sessionID string) error {
	translated := db.TranslateError(err, "create donation")
	if !pkgerrors.IsCode(translated, pkgerrors.CodeDuplicate) {
		return translated
	}
	details := map[string]any{"field": "stripeSessionId"}
	if existing, lookupErr := s.repo.FindBySessionID(ctx, sessionID); lookupErr == nil {
		details["existingId"] = existing.ID.Hex()
	}
	return pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "checkout session already recorded").WithDetails(details)
}

// ApplyWebhook reconciles a donation with a processor callback. Re-delivery
// of an event that was already applied is a no-op with outcome unchanged.
func (s *service) ApplyWebhook(ctx context.Context, event WebhookEvent) (*ApplyResult, error) {
	event = event.normalize()

	var check schema.Checker
	check.Enum("kind", event.Kind.String(), event.Kind.IsValid(), enums.WebhookEventKindValues())
	if event.SessionID == "" && event.PaymentIntentID == "" {
		check.Add("sessionId", "is required when paymentIntentId is absent")
	}
	if err := check.Err(); err != nil {
		s.record(event.Kind, "rejected")
		return nil, err
	}

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"event_id":          event.ID,
			"event_kind":        event.Kind.String(),
			"stripe_session_id": event.SessionID,
			"payment_intent_id": event.PaymentIntentID,
		})
	}

	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		donation, err := s.match(ctx, event)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				s.record(event.Kind, "not_found")
				if s.logg != nil {
					s.logg.Warn(ctx, "webhook matched no donation")
				}
			}
			return nil, err
		}
		if s.logg != nil {
			ctx = s.logg.WithField(ctx, "donation_id", donation.ID.Hex())
		}

		result, settled, err := s.reconcile(ctx, donation, event)
		if err != nil {
			s.record(event.Kind, "rejected")
			return nil, err
		}
		if settled {
			s.record(event.Kind, string(result.Outcome))
			return result, nil
		}
	}

	s.record(event.Kind, "conflict")
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "donation changed concurrently; retry the event")
}

// reconcile evaluates one event against the current row. settled is false
// when the conditional write lost a race and the row must be re-read.
func (s *service) reconcile(ctx context.Context, donation *models.Donation, event WebhookEvent) (*ApplyResult, bool, error) {
	current := donation.Status
	target := event.Kind.TargetStatus()
	required := event.Kind.RequiredStatus()

	switch {
	case current == target:
		return &ApplyResult{Donation: donation, Outcome: OutcomeUnchanged}, true, nil
	case !current.Reaches(target):
		return nil, true, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("donation cannot move from %s to %s", current, target)).
			WithDetails(map[string]any{"from": current.String(), "to": target.String()})
	case current != required:
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("ignoring %s for donation in status %s", event.Kind, current))
		}
		return &ApplyResult{Donation: donation, Outcome: OutcomeIgnored}, true, nil
	}

	written, err := s.transition(ctx, donation, event, target)
	if err != nil {
		return nil, true, db.TranslateError(err, "apply webhook")
	}
	if !written {
		return nil, false, nil
	}

	updated, err := s.FindByID(ctx, donation.ID)
	if err != nil {
		return nil, true, err
	}
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("donation %s -> %s", current, target))
	}
	return &ApplyResult{Donation: updated, Outcome: OutcomeApplied}, true, nil
}

// transition performs the conditional status write. With an outbox wired the
// matching domain event commits in the same transaction.
func (s *service) transition(ctx context.Context, donation *models.Donation, event WebhookEvent, target enums.DonationStatus) (bool, error) {
	from := donation.Status
	fields := fillFields(donation, event)
	if s.tx == nil || s.events == nil {
		return s.repo.Transition(ctx, donation.ID, from, target, fields)
	}
	eventType, ok := enums.DonationEventFor(target)
	if !ok {
		return s.repo.Transition(ctx, donation.ID, from, target, fields)
	}

	written := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		written, err = s.repo.WithTx(tx).Transition(ctx, donation.ID, from, target, fields)
		if err != nil || !written {
			return err
		}
		intent := donation.PaymentIntentID()
		if intent == "" {
			intent = event.PaymentIntentID
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateDonation,
			AggregateID:   donation.ID,
			Data: payloads.DonationStatusEvent{
				DonationID:      donation.ID,
				DonorID:         donation.DonorID,
				RecipientID:     donation.RecipientID,
				Amount:          donation.Amount,
				Currency:        donation.Currency,
				PreviousStatus:  from,
				Status:          target,
				PaymentIntentID: intent,
				WebhookEventID:  event.ID,
			},
		})
	})
	return written, err
}

// fillFields lists the processor ids the event stores alongside the status
// change. Stored intent ids are never overwritten.
func fillFields(donation *models.Donation, event WebhookEvent) map[string]any {
	fields := map[string]any{}
	switch event.Kind {
	case enums.WebhookEventCheckoutCompleted, enums.WebhookEventPaymentSucceeded:
		if event.ChargeID != "" {
			fields["stripe_charge_id"] = event.ChargeID
		}
		fallthrough
	case enums.WebhookEventPaymentFailed:
		if event.PaymentIntentID != "" && donation.PaymentIntentID() == "" {
			fields["stripe_payment_intent_id"] = event.PaymentIntentID
		}
	}
	return fields
}

// match finds the donation an event refers to: by payment intent when the
// event carries one that is already stored, else by checkout session.
func (s *service) match(ctx context.Context, event WebhookEvent) (*models.Donation, error) {
	if event.PaymentIntentID != "" {
		donation, err := s.repo.FindByPaymentIntentID(ctx, event.PaymentIntentID)
		if err == nil {
			return donation, nil
		}
		if !db.IsNotFound(err) {
			return nil, db.TranslateError(err, "match donation by payment intent")
		}
	}
	if event.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donation not found for payment intent")
	}
	donation, err := s.repo.FindBySessionID(ctx, event.SessionID)
	if err != nil {
		return nil, db.TranslateError(err, "donation not found for checkout session")
	}
	return donation, nil
}

func (s *service) FindByID(ctx context.Context, id types.ObjectID) (*models.Donation, error) {
	donation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err, "donation not found")
	}
	return donation, nil
}

// FindForParticipant returns the donation only to its donor or recipient.
func (s *service) FindForParticipant(ctx context.Context, actorID, id types.ObjectID) (*models.Donation, error) {
	donation, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID.IsZero() || (actorID != donation.RecipientID && actorID != donation.DonorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "donation belongs to other users")
	}
	return donation, nil
}

func (s *service) FindBySessionID(ctx context.Context, sessionID string) (*models.Donation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, schema.NewViolation("stripeSessionId", "is required")
	}
	donation, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, db.TranslateError(err, "donation not found")
	}
	return donation, nil
}

func (s *service) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Donation, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, schema.NewViolation("stripePaymentIntentId", "is required")
	}
	donation, err := s.repo.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, db.TranslateError(err, "donation not found")
	}
	return donation, nil
}

func (s *service) ListByDonor(ctx context.Context, donorID types.ObjectID, params pagination.Params) (*ListResult, error) {
	if donorID.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id required")
	}
	return s.list(params, func(cursor *pagination.Cursor) ([]models.Donation, error) {
		return s.repo.ListByDonor(ctx, donorID, params.Limit, cursor)
	})
}

func (s *service) ListByRecipient(ctx context.Context, recipientID types.ObjectID, params pagination.Params) (*ListResult, error) {
	if recipientID.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	return s.list(params, func(cursor *pagination.Cursor) ([]models.Donation, error) {
		return s.repo.ListByRecipient(ctx, recipientID, params.Limit, cursor)
	})
}

func (s *service) ListByStatus(ctx context.Context, status enums.DonationStatus, params pagination.Params) (*ListResult, error) {
	var check schema.Checker
	check.Enum("status", status.String(), status.IsValid(), enums.DonationStatusValues())
	if err := check.Err(); err != nil {
		return nil, err
	}
	return s.list(params, func(cursor *pagination.Cursor) ([]models.Donation, error) {
		return s.repo.ListByStatus(ctx, status, params.Limit, cursor)
	})
}

func (s *service) list(params pagination.Params, fetch func(*pagination.Cursor) ([]models.Donation, error)) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := fetch(cursor)
	if err != nil {
		return nil, db.TranslateError(err, "list donations")
	}
	page := pagination.NewPage(rows, params.Limit, cursorOf)
	return &page, nil
}

func (s *service) record(kind enums.WebhookEventKind, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordWebhookOutcome(kind.String(), outcome)
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
