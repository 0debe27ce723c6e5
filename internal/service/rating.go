package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// RatingService records post-trip ratings and keeps each user's running
// averages in step with them.
type RatingService struct {
	store               repository.Store
	notificationService *NotificationService
	logger              *logrus.Logger
	now                 func() time.Time
}

// NewRatingService creates a new RatingService.
func NewRatingService(store repository.Store, notificationService *NotificationService, logger *logrus.Logger) *RatingService {
	return &RatingService{
		store:               store,
		notificationService: notificationService,
		logger:              logger,
		now:                 time.Now,
	}
}

// CreateRatingRequest contains the parameters for rating the other
// participant of a booking.
type CreateRatingRequest struct {
	BookingID  string
	FromUserID string
	Score      int
	Comment    string
}

// CreateRating stores a rating and recomputes the target's aggregate in the
// same transaction.
func (s *RatingService) CreateRating(ctx context.Context, req CreateRatingRequest) (*domain.Rating, error) {
	if req.BookingID == "" || req.FromUserID == "" {
		return nil, domain.ErrInvalidID
	}

	var rating *domain.Rating
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		booking, err := repos.Bookings.GetByIDForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingStatusCompleted {
			return domain.ErrBookingNotCompleted
		}

		ride, err := repos.Rides.GetByID(ctx, booking.RideID)
		if err != nil {
			return err
		}

		var (
			toUserID string
			role     domain.RatingRole
		)
		switch req.FromUserID {
		case booking.RiderID:
			toUserID, role = ride.DriverID, domain.RatingRoleDriver
		case ride.DriverID:
			toUserID, role = booking.RiderID, domain.RatingRoleRider
		default:
			return domain.ErrNotParticipant
		}

		exists, err := repos.Ratings.ExistsForBookingAndRater(ctx, booking.ID, req.FromUserID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateRating
		}

		if req.Score < domain.MinScore || req.Score > domain.MaxScore {
			return domain.ErrInvalidScore
		}

		rating = &domain.Rating{
			ID:         uuid.New().String(),
			BookingID:  booking.ID,
			FromUserID: req.FromUserID,
			ToUserID:   toUserID,
			TargetRole: role,
			Score:      req.Score,
			Comment:    req.Comment,
			CreatedAt:  s.now(),
		}
		if err := repos.Ratings.Create(ctx, rating); err != nil {
			return err
		}

		// Lock the target so concurrent ratings recompute one after another.
		if _, err := repos.Users.GetByIDForUpdate(ctx, toUserID); err != nil {
			return err
		}
		scores, err := repos.Ratings.ListScoresForTarget(ctx, toUserID, role)
		if err != nil {
			return err
		}
		return repos.Users.UpdateRatingAggregate(ctx, toUserID, role, domain.AverageScore(scores), len(scores))
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"rating_id": rating.ID,
		"to_user":   rating.ToUserID,
		"role":      rating.TargetRole,
		"score":     rating.Score,
	}).Info("rating recorded")
	s.notificationService.NotifyRatingReceived(ctx, rating)

	return rating, nil
}
