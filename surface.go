package auth

import (
	"context"
)

// LoginSubmitFunc performs the actual login once the form passed the
// local checks.
type LoginSubmitFunc func(ctx context.Context, req LoginRequest) error

// SignupSubmitFunc performs the actual registration
type SignupSubmitFunc func(ctx context.Context, creds Credentials) error

// LoginSurface applies validation and the lockout policy before handing
// a login to the submit handler.
type LoginSurface struct {
	lockout   *Lockout
	simulated string
	visitor   string
	sink      ActivitySink
	logger    Logger
}

// SurfaceOption customizes a LoginSurface
type SurfaceOption func(*LoginSurface)

// WithSurfaceActivity reports lockouts for visitor to sink
func WithSurfaceActivity(sink ActivitySink, logger Logger, visitor string) SurfaceOption {
	return func(s *LoginSurface) {
		s.sink = normalizeActivitySink(sink)
		if logger != nil {
			s.logger = logger
		}
		s.visitor = visitor
	}
}

// NewLoginSurface creates a surface using lockout. A password equal to
// simulatedFailure counts as a failed login without calling submit; an
// empty value disables that.
func NewLoginSurface(lockout *Lockout, simulatedFailure string, opts ...SurfaceOption) *LoginSurface {
	if lockout == nil {
		lockout = NewLockout(DefaultLockoutThreshold, DefaultLockoutDuration)
	}
	s := &LoginSurface{
		lockout:   lockout,
		simulated: simulatedFailure,
		sink:      noopActivitySink{},
		logger:    defLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lockout returns the lockout the surface counts failures on
func (s *LoginSurface) Lockout() *Lockout {
	return s.lockout
}

// Locked reports whether submissions are currently rejected
func (s *LoginSurface) Locked() bool {
	return s.lockout.Locked()
}

// Submit runs one login attempt:
//   - locked form: ErrFormLocked, submit is not called
//   - simulated failure password: counted, ErrInvalidCredentials
//   - invalid fields: ValidationErrors, submit is not called
//   - submit rejected with *AuthenticationError: counted
//   - success: the counter is reset
func (s *LoginSurface) Submit(ctx context.Context, req LoginRequest, submit LoginSubmitFunc) error {
	if s.lockout.Locked() {
		return ErrFormLocked
	}

	if s.simulated != "" && req.Password == s.simulated {
		s.fail(ctx, req)
		return ErrInvalidCredentials
	}

	if err := req.Validate(); err != nil {
		return FormatValidationErrorToMap(err)
	}

	if err := submit(ctx, req); err != nil {
		if IsAuthenticationError(err) {
			s.fail(ctx, req)
		}
		return err
	}

	s.lockout.Reset()
	return nil
}

func (s *LoginSurface) fail(ctx context.Context, req LoginRequest) {
	if !s.lockout.RegisterFailure() {
		return
	}
	s.logger.Warn("login form locked", "visitor", s.visitor)
	emitActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginLocked,
		VisitorID: s.visitor,
		Email:     req.GetIdentifier(),
		Metadata:  map[string]any{"duration": s.lockout.Remaining().String()},
	})
}

// SignupSurface validates registrations. It has no lockout.
type SignupSurface struct {
	Region string
}

// Submit validates req and calls submit with the normalised credentials
func (s SignupSurface) Submit(ctx context.Context, req SignupRequest, submit SignupSubmitFunc) error {
	region := s.Region
	if region == "" {
		region = DefaultPhoneRegion
	}

	if err := req.validate(region); err != nil {
		return FormatValidationErrorToMap(err)
	}

	return submit(ctx, req.Credentials(region))
}
