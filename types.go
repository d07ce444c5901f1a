package oauth

import (
	"fmt"
	"strings"
	"time"
)

// Logger is the logging contract used across the package. It matches the
// method set of glog.Logger so production loggers can be passed directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Platform identifies one of the supported social networks.
type Platform string

const (
	PlatformTwitter   Platform = "TWITTER"
	PlatformLinkedIn  Platform = "LINKEDIN"
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformPinterest Platform = "PINTEREST"
	PlatformTikTok    Platform = "TIKTOK"
	PlatformYouTube   Platform = "YOUTUBE"
)

// AllPlatforms lists every supported platform in a stable order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformTwitter,
		PlatformLinkedIn,
		PlatformFacebook,
		PlatformInstagram,
		PlatformPinterest,
		PlatformTikTok,
		PlatformYouTube,
	}
}

// ParsePlatform accepts the enum value or its lowercase route form
// ("twitter", "youtube", ...).
func ParsePlatform(s string) (Platform, error) {
	candidate := Platform(strings.ToUpper(strings.TrimSpace(s)))
	if candidate == "X" {
		candidate = PlatformTwitter
	}
	for _, p := range AllPlatforms() {
		if p == candidate {
			return p, nil
		}
	}
	return "", platformNotSupported(s)
}

// Slug is the lowercase form used in callback paths and env var prefixes.
func (p Platform) Slug() string {
	return strings.ToLower(string(p))
}

func (p Platform) String() string {
	return string(p)
}

// DisplayName is used in user facing error messages.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformTwitter:
		return "Twitter"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformFacebook:
		return "Facebook"
	case PlatformInstagram:
		return "Instagram"
	case PlatformPinterest:
		return "Pinterest"
	case PlatformTikTok:
		return "TikTok"
	case PlatformYouTube:
		return "YouTube"
	default:
		return string(p)
	}
}

// AccountStatus is the health of a connected account.
type AccountStatus string

const (
	AccountStatusActive       AccountStatus = "ACTIVE"
	AccountStatusDisconnected AccountStatus = "DISCONNECTED"
	AccountStatusTokenExpired AccountStatus = "TOKEN_EXPIRED"
	AccountStatusError        AccountStatus = "ERROR"
)

// RefreshMode describes which credential a platform consumes to renew access.
type RefreshMode string

const (
	// RefreshWithRefreshToken uses a standard grant_type=refresh_token request.
	RefreshWithRefreshToken RefreshMode = "refresh_token"
	// RefreshWithAccessToken re-exchanges the current long-lived access token.
	RefreshWithAccessToken RefreshMode = "access_token"
	// RefreshUnsupported means the user has to re-authenticate.
	RefreshUnsupported RefreshMode = "unsupported"
)

// OAuthTokens is a token endpoint response. It only lives in memory and is
// always encrypted before it reaches a store.
type OAuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

// String hides token values so the struct can not leak through %v.
func (t OAuthTokens) String() string {
	return fmt.Sprintf("OAuthTokens{type=%s expires_in=%d scope=%q refresh=%t}",
		t.TokenType, t.ExpiresIn, t.Scope, t.RefreshToken != "")
}

// UserProfile is the identity an adapter resolved for an access token. For
// page or channel based platforms the ID is the page/channel id.
type UserProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
}

// Endpoints groups the static provider URLs of an adapter.
type Endpoints struct {
	AuthorizationURL string
	TokenURL         string
	ProfileURL       string
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { d.log("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.log("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.log("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.log("ERR", msg, args...) }

func (d defLogger) log(level, msg string, args ...any) {
	var b strings.Builder
	b.WriteString("[" + level + "] OAUTH " + msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	fmt.Println(b.String())
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything. Handy in tests.
func NopLogger() Logger { return nopLogger{} }

func nowUTC() time.Time {
	return time.Now().UTC()
}
