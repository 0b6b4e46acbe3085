package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/geo"
	"github.com/Thommy96/BaRiStA/internal/metrics"
	"github.com/Thommy96/BaRiStA/internal/store"
	"go.uber.org/zap"
)

const defaultGeocodeTimeout = 10 * time.Second

var (
	ErrEntityNotFound     = errors.New("entity not found")
	ErrUnknownSlot        = errors.New("unknown slot")
	ErrDayNotFound        = errors.New("opening day not found")
	ErrStructuralMismatch = errors.New("constraints do not match the knowledge base")
)

// Manner answers. The entity name is appended by the caller.
const (
	MannerUnknown    = "Sorry, this information is not available for"
	mannerNotOffered = "Sorry, %s is not offered by"
	mannerOffered    = "Yes, %s is offered by"
)

// KnowledgeService answers factual questions about the entities of one
// domain and applies the rating and review updates users submit.
type KnowledgeService struct {
	ontology       *domain.Ontology
	store          domain.EntityStore
	table          string
	geocoder       domain.Geocoder
	landmarks      []geo.Landmark
	geocodeTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewKnowledgeService creates the accessor for table. An empty table name
// defaults to the ontology's domain name.
func NewKnowledgeService(ontology *domain.Ontology, s domain.EntityStore, table string, geocoder domain.Geocoder, logger *zap.Logger) *KnowledgeService {
	if table == "" {
		table = ontology.DomainName()
	}
	return &KnowledgeService{
		ontology:       ontology,
		store:          s,
		table:          table,
		geocoder:       geocoder,
		landmarks:      geo.DefaultLandmarks,
		geocodeTimeout: defaultGeocodeTimeout,
		logger:         logger,
	}
}

func (s *KnowledgeService) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *KnowledgeService) SetGeocodeTimeout(d time.Duration) {
	if d > 0 {
		s.geocodeTimeout = d
	}
}

func (s *KnowledgeService) SetLandmarks(l []geo.Landmark) { s.landmarks = l }

func (s *KnowledgeService) Ontology() *domain.Ontology { return s.ontology }

func (s *KnowledgeService) Table() string { return s.table }

// FindEntities returns the primary key, the system-requestable slots and any
// extra slots of every entity matching constraints, in table order.
// Dontcare values are ignored; no remaining constraints returns every entity.
func (s *KnowledgeService) FindEntities(ctx context.Context, constraints domain.Constraints, extraSlots ...string) ([]domain.Entity, error) {
	columns := uniqueSlots(append(append([]string{s.ontology.PrimaryKey()}, s.ontology.SystemRequestableSlots()...), extraSlots...))

	rows, err := s.store.Select(ctx, s.table, domain.EntityQuery{
		Columns: columns,
		Filter:  store.FilterFromConstraints(constraints.Normalized()),
	})
	s.metrics.Query("find_entities", err)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownColumn):
			return nil, fmt.Errorf("find entities: %w: %v", ErrUnknownSlot, err)
		case errors.Is(err, store.ErrNotLoaded):
			return nil, fmt.Errorf("%w: %v", ErrStructuralMismatch, err)
		}
		return nil, fmt.Errorf("find entities: %w", err)
	}
	return rows, nil
}

// FindInfoAboutEntity returns the requested slots of the entity whose primary
// key is exactly entityID. Without requested slots every column is returned.
// The result is empty when no entity matches.
func (s *KnowledgeService) FindInfoAboutEntity(ctx context.Context, entityID string, requestedSlots ...string) ([]domain.Entity, error) {
	slots := uniqueSlots(requestedSlots)
	sort.Strings(slots)

	rows, err := s.store.Select(ctx, s.table, domain.EntityQuery{
		Columns:   slots,
		KeyColumn: s.ontology.PrimaryKey(),
		Key:       entityID,
	})
	s.metrics.Query("find_info", err)
	if err != nil {
		if errors.Is(err, store.ErrUnknownColumn) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownSlot, err)
		}
		return nil, fmt.Errorf("find info about %q: %w", entityID, err)
	}
	return rows, nil
}

func (s *KnowledgeService) column(ctx context.Context, entityID, column string) (string, error) {
	rows, err := s.FindInfoAboutEntity(ctx, entityID, column)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	return rows[0][column], nil
}

// OpeningHours returns the decoded opening hours of an entity.
func (s *KnowledgeService) OpeningHours(ctx context.Context, entityID string) (domain.OpeningHours, error) {
	raw, err := s.column(ctx, entityID, domain.ColumnOpeningHours)
	if err != nil {
		return nil, err
	}
	return store.DecodeOpeningHours(raw)
}

// QueryOpeningInfo describes the opening hours of an entity on day.
func (s *KnowledgeService) QueryOpeningInfo(ctx context.Context, day, entityID string) (string, error) {
	hours, err := s.OpeningHours(ctx, entityID)
	if err != nil {
		return "", err
	}
	info, ok := hours.Lookup(day)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDayNotFound, day)
	}
	if info == domain.ClosedDay {
		return "is closed", nil
	}
	return "has opened from " + info, nil
}

// QueryMannerInfo tells whether an entity offers a service manner such as
// "takeaway". Recorded manners are matched by substring; a match containing
// "No" means not offered and wins over any positive match. Takeaway is also
// offered when pickup or drive-through is recorded.
func (s *KnowledgeService) QueryMannerInfo(ctx context.Context, manner, entityID string) (string, error) {
	raw, err := s.column(ctx, entityID, domain.ColumnManner)
	if err != nil {
		return "", err
	}
	recorded, err := store.DecodeManners(raw)
	if err != nil {
		return "", err
	}
	return mannerAnswer(manner, recorded), nil
}

func mannerAnswer(manner string, recorded []string) string {
	offered, notOffered := false, false
	for _, m := range recorded {
		if strings.Contains(m, manner) {
			if strings.Contains(m, "No") {
				notOffered = true
			} else {
				offered = true
			}
		}
		if manner == "takeaway" && (strings.Contains(m, "pickup") || strings.Contains(m, "drive-through")) {
			offered = true
		}
	}
	switch {
	case notOffered:
		return fmt.Sprintf(mannerNotOffered, manner)
	case offered:
		return fmt.Sprintf(mannerOffered, manner)
	default:
		return MannerUnknown
	}
}

// EnterRating folds a user rating into the stored average and returns the new
// rating. The review count itself is not changed.
func (s *KnowledgeService) EnterRating(ctx context.Context, givenRating float64, entityID string) (string, error) {
	var newRating string
	err := s.store.Modify(ctx, s.table, s.ontology.PrimaryKey(), entityID,
		[]string{domain.ColumnRating, domain.ColumnNumReviews},
		func(current domain.Entity) (map[string]string, error) {
			rating, err := store.ParseRating(current[domain.ColumnRating])
			if err != nil {
				return nil, err
			}
			count, err := store.ParseReviewCount(current[domain.ColumnNumReviews])
			if err != nil {
				return nil, err
			}
			newRating = store.FormatRating(AggregateRating(rating, count, givenRating))
			return map[string]string{domain.ColumnRating: newRating}, nil
		})
	s.metrics.Write("enter_rating", err)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
		}
		return "", fmt.Errorf("enter rating for %q: %w", entityID, err)
	}
	s.logger.Info("rating entered",
		zap.String("entity", entityID),
		zap.Float64("given", givenRating),
		zap.String("rating", newRating))
	return newRating, nil
}

// AggregateRating adds one rating to an average over count ratings.
func AggregateRating(current float64, count int, given float64) float64 {
	return (current*float64(count) + given) / float64(count+1)
}

// EnterReview appends a review to the entity's stored reviews.
func (s *KnowledgeService) EnterReview(ctx context.Context, review, entityID string) error {
	err := s.store.Modify(ctx, s.table, s.ontology.PrimaryKey(), entityID,
		[]string{domain.ColumnReviews},
		func(current domain.Entity) (map[string]string, error) {
			reviews, err := store.DecodeReviews(current[domain.ColumnReviews])
			if err != nil {
				return nil, err
			}
			reviews = append(reviews, review)
			return map[string]string{domain.ColumnReviews: store.EncodeReviews(reviews)}, nil
		})
	s.metrics.Write("enter_review", err)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
		}
		return fmt.Errorf("enter review for %q: %w", entityID, err)
	}
	s.logger.Info("review entered", zap.String("entity", entityID), zap.Int("length", len(review)))
	return nil
}

// DistanceDuration estimates how far the entity is from startPoint and how
// long the trip takes in mode. Endpoints that cannot be geocoded, including
// timeouts, yield domain.UnavailableRoute; an unknown mode yields the
// BadTravelManner pair. Only a missing entity is returned as an error.
func (s *KnowledgeService) DistanceDuration(ctx context.Context, startPoint, entityID string, mode domain.TravelMode) (domain.Route, error) {
	address, err := s.column(ctx, entityID, domain.ColumnAddress)
	if err != nil {
		return domain.Route{}, err
	}
	if !geo.ValidMode(mode) {
		return geo.Estimate(0, mode), nil
	}

	resolved := geo.ResolveStartPoint(s.landmarks, startPoint)

	ctx, cancel := context.WithTimeout(ctx, s.geocodeTimeout)
	defer cancel()

	to, err := s.geocode(ctx, address)
	if err != nil {
		s.logger.Warn("entity address not geocoded",
			zap.String("entity", entityID), zap.String("address", address), zap.Error(err))
		return domain.UnavailableRoute, nil
	}
	from, err := s.geocode(ctx, resolved)
	if err != nil {
		s.logger.Warn("start point not geocoded",
			zap.String("start_point", startPoint), zap.String("resolved", resolved), zap.Error(err))
		return domain.UnavailableRoute, nil
	}

	return geo.Estimate(geo.GeodesicKM(from, to), mode), nil
}

func (s *KnowledgeService) geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if s.geocoder == nil {
		return domain.Coordinates{}, geo.ErrNoMatch
	}
	start := time.Now()
	c, err := s.geocoder.Geocode(ctx, address)
	s.metrics.Geocode(start, err)
	return c, err
}

// ExportAddresses maps every entity's primary key to its address.
func (s *KnowledgeService) ExportAddresses(ctx context.Context) (map[string]string, error) {
	return s.columnByKey(ctx, domain.ColumnAddress)
}

// ExportOpeningHours maps every entity's primary key to its decoded opening
// hours.
func (s *KnowledgeService) ExportOpeningHours(ctx context.Context) (map[string]domain.OpeningHours, error) {
	raw, err := s.columnByKey(ctx, domain.ColumnOpeningHours)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.OpeningHours, len(raw))
	for key, value := range raw {
		hours, err := store.DecodeOpeningHours(value)
		if err != nil {
			return nil, fmt.Errorf("opening hours of %q: %w", key, err)
		}
		out[key] = hours
	}
	return out, nil
}

func (s *KnowledgeService) columnByKey(ctx context.Context, column string) (map[string]string, error) {
	pk := s.ontology.PrimaryKey()
	rows, err := s.store.Select(ctx, s.table, domain.EntityQuery{Columns: uniqueSlots([]string{pk, column})})
	s.metrics.Query("export", err)
	if err != nil {
		if errors.Is(err, store.ErrUnknownColumn) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownSlot, err)
		}
		return nil, fmt.Errorf("export %s: %w", column, err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row[pk]] = row[column]
	}
	return out, nil
}

// uniqueSlots drops empty and repeated names, keeping first occurrences.
func uniqueSlots(slots []string) []string {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot == "" {
			continue
		}
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		out = append(out, slot)
	}
	return out
}

var _ domain.KnowledgeBase = (*KnowledgeService)(nil)
