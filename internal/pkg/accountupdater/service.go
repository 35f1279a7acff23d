package accountupdater

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecomdemo/cardsync/app/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Service reconciles account updater events against the card store.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a reconciler from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a reconciler from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Reconcile resolves ev to at most one card and applies the normalized
// expiry and status to it. Lookup, comparison and write share a single
// transaction so concurrent deliveries for one subscription serialize on
// the card row.
func (s *Service) Reconcile(ctx context.Context, ev Event) (Result, error) {
	change, err := Normalize(ev)
	if err != nil {
		return Result{Outcome: OutcomeRejected, Reason: ReasonMalformedPayload}, err
	}

	res := Result{SubscriptionID: change.SubscriptionID}
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		card, match, reason, err := resolveCard(ctx, tx, change)
		if err != nil {
			return err
		}
		if card == nil {
			res.Outcome = OutcomeUnmatched
			res.Reason = reason
			return nil
		}
		res.CardID = card.ID
		res.Match = match

		update := diffCard(card, change, match)
		if update.IsEmpty() {
			res.Outcome = OutcomeMatchedNoChange
			res.Reason = ReasonAlreadyCurrent
			if change.IsEmpty() {
				res.Reason = ReasonNothingToApply
			}
			return nil
		}
		update.UpdatedAt = s.now()
		if err := tx.UpdateCard(ctx, card.ID, update); err != nil {
			return err
		}
		res.Outcome = OutcomeUpdated
		res.Reason = ReasonApplied
		return nil
	})
	if err != nil {
		fiberlog.Errorf("[AccountUpdater] subscription %s: store failure: %v", change.SubscriptionID, err)
		return Result{
			Outcome:        OutcomeError,
			Reason:         ReasonStoreUnavailable,
			SubscriptionID: change.SubscriptionID,
		}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	switch res.Outcome {
	case OutcomeUnmatched:
		fiberlog.Warnf("[AccountUpdater] subscription %s: no card matched (%s), needs manual reconciliation", res.SubscriptionID, res.Reason)
	case OutcomeUpdated:
		fiberlog.Infof("[AccountUpdater] subscription %s: card %d updated via %s match", res.SubscriptionID, res.CardID, res.Match)
	default:
		fiberlog.Infof("[AccountUpdater] subscription %s: card %d already current via %s match", res.SubscriptionID, res.CardID, res.Match)
	}
	return res, nil
}

// resolveCard runs the primary subscription lookup and, when that misses,
// the user-scoped fallback. A nil card with a reason means unmatched.
func resolveCard(ctx context.Context, tx Repository, change Change) (*models.Card, string, Reason, error) {
	card, err := tx.FindCardBySubscriptionID(ctx, change.SubscriptionID)
	if err == nil {
		return card, models.MatchMethodSubscriptionID, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}

	if change.UserID == 0 {
		return nil, "", ReasonNoCard, nil
	}
	cards, err := tx.ListCardsByUserID(ctx, change.UserID)
	if err != nil {
		return nil, "", "", err
	}
	candidate, reason := PickFallbackCard(cards, change.LastFour)
	if candidate == nil {
		return nil, "", reason, nil
	}
	fiberlog.Warnf("[AccountUpdater] subscription %s: FALLBACK match to card %d of user %d (last_four hint %q)",
		change.SubscriptionID, candidate.ID, change.UserID, change.LastFour)
	return candidate, models.MatchMethodFallback, "", nil
}

// PickFallbackCard applies the fallback heuristic to one user's cards. Only
// open cards that are not enrolled yet qualify, since an enrolled card would
// have matched on its own subscription id. A last-four hint narrows the set.
// Exactly one survivor is a match; several are ambiguous and match nothing.
func PickFallbackCard(cards []models.Card, lastFour string) (*models.Card, Reason) {
	var candidates []models.Card
	hint := strings.TrimSpace(lastFour)
	for _, c := range cards {
		if c.IsClosed() || c.HasSubscription() {
			continue
		}
		if hint != "" && c.LastFour != hint {
			continue
		}
		candidates = append(candidates, c)
	}

	switch len(candidates) {
	case 0:
		return nil, ReasonNoCard
	case 1:
		picked := candidates[0]
		return &picked, ""
	default:
		return nil, ReasonFallbackAmbiguous
	}
}

func diffCard(card *models.Card, change Change, match string) CardUpdate {
	var update CardUpdate
	if change.ExpiryDate != "" && change.ExpiryDate != card.ExpiryDate {
		v := change.ExpiryDate
		update.ExpiryDate = &v
	}
	status := change.Status
	if status == "" && !card.IsClosed() {
		// an expiry notice does not reopen a closed account
		status = change.ImpliedStatus
	}
	if status != "" && status != card.Status {
		update.Status = &status
	}
	if match == models.MatchMethodFallback && !card.HasSubscription() {
		v := change.SubscriptionID
		update.SubscriptionID = &v
	}
	return update
}

// RecordDelivery appends one audit row for a delivery.
func (s *Service) RecordDelivery(ctx context.Context, in DeliveryInput) (*models.WebhookDelivery, error) {
	delivery := &models.WebhookDelivery{
		TransmissionID: strings.TrimSpace(in.TransmissionID),
		EventType:      strings.TrimSpace(in.EventType),
		SubscriptionID: in.Result.SubscriptionID,
		SignatureValid: in.SignatureValid,
		Outcome:        string(in.Result.Outcome),
		Reason:         string(in.Result.Reason),
		MatchMethod:    in.Result.Match,
		PayloadJSON:    in.PayloadJSON,
	}
	if in.Result.CardID != 0 {
		id := in.Result.CardID
		delivery.CardID = &id
	}
	if in.ProcessingError != nil {
		delivery.ProcessingError = in.ProcessingError.Error()
	}
	if err := s.repo.CreateDelivery(ctx, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}
