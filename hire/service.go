package hire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
	"github.com/yash9140/GigFlow/notify"
)

const (
	defaultMaxAttempts = 3
	defaultPushTimeout = 300 * time.Millisecond
	retryBackoff       = 15 * time.Millisecond

	hiredMessage = "Congratulations! You have been hired for a gig"
)

// Directory resolves a user to their live channel, if any.
type Directory interface {
	Lookup(userID string) (notify.Handle, bool)
}

// Pusher delivers an event over a live channel.
type Pusher interface {
	PushEvent(ctx context.Context, h notify.Handle, ev notify.Event) error
}

// Recorder receives hire and notification measurements.
type Recorder interface {
	HireCompleted(outcome string, elapsed time.Duration)
	HireRetried()
	NotificationSent(result string)
}

type noopRecorder struct{}

func (noopRecorder) HireCompleted(string, time.Duration) {}
func (noopRecorder) HireRetried()                        {}
func (noopRecorder) NotificationSent(string)             {}

// Notification results.
const (
	NotifyDelivered = "delivered"
	NotifyNoChannel = "no_channel"
	NotifyFailed    = "failed"
)

// Result is the state of the hired bid and the assigned gig after commit.
type Result struct {
	Bid      bid.Bid
	Gig      gig.Gig
	Rejected int64
}

// Service orchestrates hires: it validates, performs the atomic transition
// and fires a best-effort notification once the transaction has committed.
type Service struct {
	store       Store
	directory   Directory
	pusher      Pusher
	metrics     Recorder
	log         zerolog.Logger
	maxAttempts int
	pushTimeout time.Duration

	inflight sync.WaitGroup
}

func NewService(store Store, directory Directory, pusher Pusher, log zerolog.Logger) *Service {
	return &Service{
		store:       store,
		directory:   directory,
		pusher:      pusher,
		metrics:     noopRecorder{},
		log:         log.With().Str("component", "hire").Logger(),
		maxAttempts: defaultMaxAttempts,
		pushTimeout: defaultPushTimeout,
	}
}

func (s *Service) WithMaxAttempts(n int) *Service {
	if n > 0 {
		s.maxAttempts = n
	}
	return s
}

func (s *Service) WithPushTimeout(d time.Duration) *Service {
	if d > 0 {
		s.pushTimeout = d
	}
	return s
}

func (s *Service) WithMetrics(r Recorder) *Service {
	if r != nil {
		s.metrics = r
	}
	return s
}

// Hire makes bidID the winning bid of its gig on behalf of actorID.
//
// Every precondition is evaluated inside the transaction that performs the
// writes, and the gig update is conditional on the gig still being open, so
// a concurrent loser always observes ErrConflict. Transient store failures
// restart the whole attempt, checks included.
func (s *Service) Hire(ctx context.Context, actorID, bidID string) (Result, error) {
	start := time.Now()

	var (
		res Result
		err error
	)
	for attempt := 1; ; attempt++ {
		res, err = s.attempt(ctx, actorID, bidID)
		if err == nil || !errors.Is(err, ErrTransient) {
			break
		}
		if attempt >= s.maxAttempts {
			err = fmt.Errorf("%w after %d attempts: %w", ErrTransaction, attempt, err)
			break
		}
		s.metrics.HireRetried()
		s.log.Warn().Err(err).Str("bid_id", bidID).Int("attempt", attempt).Msg("hire transaction conflicted, retrying")
		if waitErr := sleepCtx(ctx, time.Duration(attempt)*retryBackoff); waitErr != nil {
			err = fmt.Errorf("%w: %w", ErrTransaction, waitErr)
			break
		}
	}

	outcome := outcomeOf(err)
	s.metrics.HireCompleted(outcome, time.Since(start))

	if err != nil {
		evt := s.log.Info()
		if outcome == OutcomeTxFailure {
			evt = s.log.Error()
		}
		evt.Err(err).Str("actor_id", actorID).Str("bid_id", bidID).Str("outcome", outcome).Msg("hire rejected")
		return Result{}, err
	}

	s.log.Info().
		Str("gig_id", res.Gig.ID).
		Str("bid_id", res.Bid.ID).
		Str("freelancer_id", res.Bid.FreelancerID).
		Int64("rejected", res.Rejected).
		Msg("gig assigned")

	s.notifyHired(res)
	return res, nil
}

func (s *Service) attempt(ctx context.Context, actorID, bidID string) (Result, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Result{}, txErr(err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if abortErr := tx.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			s.log.Warn().Err(abortErr).Str("bid_id", bidID).Msg("hire rollback failed")
		}
	}()

	b, err := tx.GetBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, bid.ErrNotFound) {
			return Result{}, ErrBidNotFound
		}
		return Result{}, txErr(err)
	}

	g, err := tx.GetGig(ctx, b.GigID)
	if err != nil {
		if errors.Is(err, gig.ErrNotFound) {
			return Result{}, ErrGigNotFound
		}
		return Result{}, txErr(err)
	}
	if g.ClientID != actorID {
		return Result{}, ErrUnauthorized
	}
	if g.Status != gig.StatusOpen {
		return Result{}, ErrConflict
	}

	hired, err := tx.UpdateBidStatus(ctx, b.ID, bid.StatusHired)
	if err != nil {
		return Result{}, txErr(err)
	}
	rejected, err := tx.UpdateManyBidStatus(ctx, g.ID, b.ID, bid.StatusRejected, bid.StatusPending)
	if err != nil {
		return Result{}, txErr(err)
	}
	assigned, err := tx.UpdateGigStatus(ctx, g.ID, gig.StatusAssigned, gig.StatusOpen)
	if err != nil {
		return Result{}, txErr(err)
	}

	if err := tx.EnqueueOutbox(ctx, TopicGigAssigned, map[string]any{
		"gig_id":        assigned.ID,
		"bid_id":        hired.ID,
		"freelancer_id": hired.FreelancerID,
		"client_id":     assigned.ClientID,
	}); err != nil {
		return Result{}, txErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, txErr(err)
	}
	committed = true

	return Result{Bid: hired, Gig: assigned, Rejected: rejected}, nil
}

// txErr maps store errors onto the hire taxonomy. Transient errors keep
// their marker so Hire can retry them.
func txErr(err error) error {
	switch {
	case errors.Is(err, gig.ErrStatusMismatch):
		return ErrConflict
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTransaction):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrTransaction, err)
	}
}

// notifyHired pushes the hired event on a detached goroutine bounded by the
// push timeout. Its outcome never reaches the Hire caller.
func (s *Service) notifyHired(res Result) {
	if s.directory == nil || s.pusher == nil {
		return
	}
	ev := notify.Event{
		Type:      notify.EventHired,
		Message:   hiredMessage,
		GigID:     res.Gig.ID,
		GigTitle:  res.Gig.Title,
		BidID:     res.Bid.ID,
		BidAmount: res.Bid.Amount,
	}
	recipient := res.Bid.FreelancerID

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		log := s.log.With().Str("freelancer_id", recipient).Str("gig_id", ev.GigID).Logger()
		h, ok := s.directory.Lookup(recipient)
		if !ok {
			s.metrics.NotificationSent(NotifyNoChannel)
			log.Debug().Err(notify.ErrNoChannel).Msg("hire notification skipped")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
		defer cancel()
		if err := s.pusher.PushEvent(ctx, h, ev); err != nil {
			s.metrics.NotificationSent(NotifyFailed)
			log.Warn().Err(err).Msg("hire notification not delivered")
			return
		}
		s.metrics.NotificationSent(NotifyDelivered)
	}()
}

// Drain blocks until every detached notification has finished or ctx ends.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
