package auth

import "time"

// DefaultConfig is a plain Config with the stock CoachPro values.
// Zero fields fall back to the defaults in the getters.
type DefaultConfig struct {
	AuthBaseURL              string        `json:"auth_base_url"`
	RequestTimeout           time.Duration `json:"request_timeout"`
	RefreshCookieName        string        `json:"refresh_cookie_name"`
	VisitorCookieName        string        `json:"visitor_cookie_name"`
	CookieSecure             bool          `json:"cookie_secure"`
	RememberMeDuration       time.Duration `json:"remember_me_duration"`
	SessionScopeTTL          time.Duration `json:"session_scope_ttl"`
	IdleTimeout              time.Duration `json:"idle_timeout"`
	IdleCheckInterval        time.Duration `json:"idle_check_interval"`
	LockoutThreshold         int           `json:"lockout_threshold"`
	LockoutDuration          time.Duration `json:"lockout_duration"`
	SimulatedFailurePassword *string       `json:"simulated_failure_password,omitempty"`
	LoginPath                string        `json:"login_path"`
	DefaultRedirect          string        `json:"default_redirect"`
	CSRFEnabled              bool          `json:"csrf_enabled"`
}

const (
	defaultAuthBaseURL        = "http://localhost:3000/api"
	defaultVisitorCookieName  = "coachpro_vid"
	defaultRememberMeDuration = 30 * 24 * time.Hour
	defaultSessionScopeTTL    = 12 * time.Hour
	defaultLoginPath          = "/login"
	defaultRedirectPath       = "/dashboard"
	// DefaultSimulatedFailurePassword is the password value treated as a failed login
	DefaultSimulatedFailurePassword = "wrong"
)

var _ Config = DefaultConfig{}

func (c DefaultConfig) GetAuthBaseURL() string {
	if c.AuthBaseURL == "" {
		return defaultAuthBaseURL
	}
	return c.AuthBaseURL
}

func (c DefaultConfig) GetRequestTimeout() time.Duration {
	return c.RequestTimeout
}

func (c DefaultConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return defaultRefreshCookieName
	}
	return c.RefreshCookieName
}

func (c DefaultConfig) GetVisitorCookieName() string {
	if c.VisitorCookieName == "" {
		return defaultVisitorCookieName
	}
	return c.VisitorCookieName
}

func (c DefaultConfig) GetCookieSecure() bool {
	return c.CookieSecure
}

func (c DefaultConfig) GetRememberMeDuration() time.Duration {
	if c.RememberMeDuration <= 0 {
		return defaultRememberMeDuration
	}
	return c.RememberMeDuration
}

func (c DefaultConfig) GetSessionScopeTTL() time.Duration {
	if c.SessionScopeTTL <= 0 {
		return defaultSessionScopeTTL
	}
	return c.SessionScopeTTL
}

func (c DefaultConfig) GetIdleTimeout() time.Duration {
	if c.IdleTimeout <= 0 {
		return DefaultIdleTimeout
	}
	return c.IdleTimeout
}

func (c DefaultConfig) GetIdleCheckInterval() time.Duration {
	if c.IdleCheckInterval <= 0 {
		return DefaultIdleCheckInterval
	}
	return c.IdleCheckInterval
}

func (c DefaultConfig) GetLockoutThreshold() int {
	if c.LockoutThreshold <= 0 {
		return DefaultLockoutThreshold
	}
	return c.LockoutThreshold
}

func (c DefaultConfig) GetLockoutDuration() time.Duration {
	if c.LockoutDuration <= 0 {
		return DefaultLockoutDuration
	}
	return c.LockoutDuration
}

// GetSimulatedFailurePassword returns "wrong" unless set. An explicit
// empty value disables the simulated failure.
func (c DefaultConfig) GetSimulatedFailurePassword() string {
	if c.SimulatedFailurePassword == nil {
		return DefaultSimulatedFailurePassword
	}
	return *c.SimulatedFailurePassword
}

func (c DefaultConfig) GetLoginPath() string {
	if c.LoginPath == "" {
		return defaultLoginPath
	}
	return c.LoginPath
}

func (c DefaultConfig) GetDefaultRedirect() string {
	if c.DefaultRedirect == "" {
		return defaultRedirectPath
	}
	return c.DefaultRedirect
}

func (c DefaultConfig) GetCSRFEnabled() bool {
	return c.CSRFEnabled
}
