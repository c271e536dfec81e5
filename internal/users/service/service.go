package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roster/internal/platform/tracer"
	"roster/internal/sentinel"
	"roster/internal/users/models"
	dErrors "roster/pkg/domain-errors"
	vld "roster/pkg/validation"
)

// MillisPerYear is the average Gregorian year in milliseconds.
const MillisPerYear = 31556952000

// Query parameter names accepted by ParseFilter.
const (
	ParamImageExists = "is_image_exists"
	ParamMinAge      = "min_age"
	ParamMaxAge      = "max_age"
)

// Store is the read side of the users table.
type Store interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

// Runner executes reconciliation passes.
type Runner interface {
	RunPass(ctx context.Context, trigger string) (models.PassResult, error)
}

// StatusReader returns the latest pass result.
type StatusReader interface {
	Last(ctx context.Context) (*models.PassResult, error)
}

// Service answers user queries and triggers passes on demand.
type Service struct {
	store  Store
	runner Runner
	status StatusReader
	tracer tracer.Tracer
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithClock overrides the clock used for age filters.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, runner Runner, status StatusReader, opts ...Option) *Service {
	s := &Service{
		store:  store,
		runner: runner,
		status: status,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

// ParseFilter reads the query filters. is_image_exists accepts only "True" or
// "False"; ages are non-negative years, may be fractional and may carry
// surrounding whitespace.
func ParseFilter(q url.Values) (models.Filter, error) {
	var f models.Filter
	if q.Has(ParamImageExists) {
		v := q.Get(ParamImageExists)
		if !vld.Var(v, "oneof=True False") {
			return f, dErrors.New(dErrors.CodeBadRequest, "is_image_exists must be True or False")
		}
		f.HasImage = boolPtr(v == "True")
	}
	var err error
	if f.MinAge, err = parseAge(q, ParamMinAge); err != nil {
		return f, err
	}
	if f.MaxAge, err = parseAge(q, ParamMaxAge); err != nil {
		return f, err
	}
	return f, nil
}

func parseAge(q url.Values, name string) (*float64, error) {
	if !q.Has(name) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(q.Get(name)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || !vld.Var(v, "gte=0") {
		return nil, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative number")
	}
	return &v, nil
}

func boolPtr(b bool) *bool { return &b }

// Query returns users matching f keyed by user_id.
func (s *Service) Query(ctx context.Context, f models.Filter) (map[string]models.UserView, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanQuery)
	users, err := s.store.ListAll(ctx)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to load users")
		span.End(err)
		return nil, err
	}

	nowMs := new(big.Float).SetInt64(s.now().UnixMilli())
	out := make(map[string]models.UserView, len(users))
	for _, u := range users {
		if matches(u, f, nowMs) {
			out[u.UserID] = u.View()
		}
	}
	span.SetAttributes(tracer.Int(tracer.AttrResults, len(out)))
	span.End(nil)
	return out, nil
}

func matches(u models.User, f models.Filter, nowMs *big.Float) bool {
	if f.HasImage != nil && u.HasImage() != *f.HasImage {
		return false
	}
	if f.MinAge == nil && f.MaxAge == nil {
		return true
	}
	age, ok := ageMillis(u.BirthTS, nowMs)
	if !ok {
		return false
	}
	if f.MinAge != nil && age.Cmp(yearsToMillis(*f.MinAge)) < 0 {
		return false
	}
	if f.MaxAge != nil && age.Cmp(yearsToMillis(*f.MaxAge)) > 0 {
		return false
	}
	return true
}

// ageMillis is now minus birthts, in milliseconds. birthts is stored as read
// and may carry surrounding whitespace.
func ageMillis(birthTS string, nowMs *big.Float) (*big.Float, bool) {
	birth, ok := new(big.Float).SetString(strings.TrimSpace(birthTS))
	if !ok {
		return nil, false
	}
	return new(big.Float).Sub(nowMs, birth), true
}

func yearsToMillis(years float64) *big.Float {
	return new(big.Float).Mul(big.NewFloat(years), big.NewFloat(MillisPerYear))
}

// RunPass triggers a pass and waits for it.
func (s *Service) RunPass(ctx context.Context) (models.PassResult, error) {
	return s.runner.RunPass(ctx, models.TriggerManual)
}

// LastPass returns the most recent pass result.
func (s *Service) LastPass(ctx context.Context) (*models.PassResult, error) {
	res, err := s.status.Last(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no pass has completed yet")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pass status")
	}
	return res, nil
}
