package oauth

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeConfiguration       = "OAUTH_CONFIGURATION"
	TextCodeInvalidState        = "OAUTH_INVALID_STATE"
	TextCodeTokenExchangeFailed = "OAUTH_TOKEN_EXCHANGE_FAILED"
	TextCodeProfileUnavailable  = "OAUTH_PROFILE_UNAVAILABLE"
	TextCodeProfileFetchFailed  = "OAUTH_PROFILE_FETCH_FAILED"
	TextCodeRefreshUnsupported  = "OAUTH_REFRESH_UNSUPPORTED"
	TextCodeRefreshFailed       = "OAUTH_REFRESH_FAILED"
	TextCodeDecryptionFailed    = "OAUTH_DECRYPTION_FAILED"
	TextCodeMalformedCiphertext = "OAUTH_MALFORMED_CIPHERTEXT"
	TextCodeEncryptionFailed    = "OAUTH_ENCRYPTION_FAILED"
	TextCodePlatformUnsupported = "OAUTH_PLATFORM_NOT_SUPPORTED"
	TextCodeAccountNotFound     = "OAUTH_ACCOUNT_NOT_FOUND"
	TextCodeStorage             = "OAUTH_STORAGE"
)

// ErrorKind is the structural classification callers branch on instead of
// matching error messages.
type ErrorKind string

const (
	KindUnknown             ErrorKind = ""
	KindConfiguration       ErrorKind = "configuration"
	KindInvalidState        ErrorKind = "invalid_state"
	KindTokenExchangeFailed ErrorKind = "token_exchange_failed"
	KindProfileUnavailable  ErrorKind = "profile_unavailable"
	KindProfileFetchFailed  ErrorKind = "profile_fetch_failed"
	KindRefreshUnsupported  ErrorKind = "refresh_unsupported"
	KindRefreshFailed       ErrorKind = "refresh_failed"
	KindDecryptionFailed    ErrorKind = "decryption_failed"
	KindEncryptionFailed    ErrorKind = "encryption_failed"
	KindPlatformUnsupported ErrorKind = "platform_not_supported"
	KindAccountNotFound     ErrorKind = "account_not_found"
	KindStorage             ErrorKind = "storage"
)

var kindsByTextCode = map[string]ErrorKind{
	TextCodeConfiguration:       KindConfiguration,
	TextCodeInvalidState:        KindInvalidState,
	TextCodeTokenExchangeFailed: KindTokenExchangeFailed,
	TextCodeProfileUnavailable:  KindProfileUnavailable,
	TextCodeProfileFetchFailed:  KindProfileFetchFailed,
	TextCodeRefreshUnsupported:  KindRefreshUnsupported,
	TextCodeRefreshFailed:       KindRefreshFailed,
	TextCodeDecryptionFailed:    KindDecryptionFailed,
	TextCodeMalformedCiphertext: KindDecryptionFailed,
	TextCodeEncryptionFailed:    KindEncryptionFailed,
	TextCodePlatformUnsupported: KindPlatformUnsupported,
	TextCodeAccountNotFound:     KindAccountNotFound,
	TextCodeStorage:             KindStorage,
}

// ErrInvalidState is returned when a callback state is unknown, expired or
// was already consumed.
var ErrInvalidState = goerrors.New("Invalid or expired state", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExchangeFailed is returned when a provider rejects an authorization code.
var ErrTokenExchangeFailed = goerrors.New("token exchange failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrProfileFetchFailed is returned when the provider identity can not be loaded.
var ErrProfileFetchFailed = goerrors.New("failed to fetch user profile", goerrors.CategoryAuth).
	WithTextCode(TextCodeProfileFetchFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshFailed is returned when a provider rejects a refresh.
var ErrRefreshFailed = goerrors.New("token refresh failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeRefreshFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrDecryptionFailed is returned when a stored token fails authentication.
// The account has to be re-authorized.
var ErrDecryptionFailed = goerrors.New("decryption failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeDecryptionFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrMalformedCiphertext is returned when a stored token is not in
// iv:tag:ciphertext form.
var ErrMalformedCiphertext = goerrors.New("decryption failed: malformed ciphertext", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedCiphertext).
	WithCode(goerrors.CodeBadRequest)

// ErrEncryptionFailed is returned when a token could not be sealed.
var ErrEncryptionFailed = goerrors.New("encryption failed", goerrors.CategoryInternal).
	WithTextCode(TextCodeEncryptionFailed).
	WithCode(goerrors.CodeInternal)

// ErrAccountNotFound is returned when no account exists for a user and platform.
var ErrAccountNotFound = goerrors.New("social account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrStorage wraps persistence failures.
var ErrStorage = goerrors.New("storage operation failed", goerrors.CategoryInternal).
	WithTextCode(TextCodeStorage).
	WithCode(goerrors.CodeInternal)

// KindOf classifies err. Unknown errors return KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var rich *goerrors.Error
	if errors.As(err, &rich) && rich != nil {
		if kind, ok := kindsByTextCode[rich.TextCode]; ok {
			return kind
		}
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// RequiresReauthentication reports whether the user has to run the
// authorization flow again to recover.
func RequiresReauthentication(err error) bool {
	switch KindOf(err) {
	case KindInvalidState, KindRefreshUnsupported, KindDecryptionFailed:
		return true
	}
	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr.Code == CodeMissingStoredToken ||
			perr.Status == http.StatusBadRequest || perr.Status == http.StatusUnauthorized
	}
	return false
}

// CodeMissingStoredToken is the ProviderError code for an account that has
// no token left to refresh with. Only a new authorization can recover it.
const CodeMissingStoredToken = "missing_token"

func missingStoredToken(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr != nil && perr.Code == CodeMissingStoredToken
}

// ConfigurationError reports a missing or invalid setting, e.g.
// "TWITTER_CLIENT_ID not configured".
func ConfigurationError(key string) error {
	return goerrors.New(key+" not configured", goerrors.CategoryInternal).
		WithTextCode(TextCodeConfiguration).
		WithCode(goerrors.CodeInternal).
		WithMetadata(map[string]any{"key": key})
}

// InvalidConfiguration reports a present but unusable setting.
func InvalidConfiguration(key, reason string) error {
	return goerrors.New(fmt.Sprintf("%s is invalid: %s", key, reason), goerrors.CategoryInternal).
		WithTextCode(TextCodeConfiguration).
		WithCode(goerrors.CodeInternal).
		WithMetadata(map[string]any{"key": key})
}

// ProfileUnavailable is the user actionable failure raised when the
// authenticated identity owns no usable page or channel.
func ProfileUnavailable(platform Platform, reason string) error {
	return goerrors.New(reason, goerrors.CategoryNotFound).
		WithTextCode(TextCodeProfileUnavailable).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"platform": string(platform)})
}

// RefreshNotSupported is the permanent failure for platforms without refresh.
func RefreshNotSupported(platform Platform) error {
	return goerrors.New(
		fmt.Sprintf("%s does not support token refresh, user must re-authenticate", platform.DisplayName()),
		goerrors.CategoryAuth,
	).
		WithTextCode(TextCodeRefreshUnsupported).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{"platform": string(platform)})
}

func platformNotSupported(name string) error {
	return goerrors.New(fmt.Sprintf("platform %q is not supported", name), goerrors.CategoryNotFound).
		WithTextCode(TextCodePlatformUnsupported).
		WithCode(goerrors.CodeNotFound)
}

// wrapError clones base, attaches the cause and merges metadata. Errors that
// are already classified pass through untouched.
func wrapError(base *goerrors.Error, platform Platform, operation string, err error) error {
	if err != nil && KindOf(err) != KindUnknown {
		return err
	}

	meta := map[string]any{}
	if platform != "" {
		meta["platform"] = string(platform)
	}
	if operation != "" {
		meta["operation"] = operation
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// ProviderError captures a normalized provider response.
type ProviderError struct {
	Platform    Platform
	Operation   string
	Status      int
	Code        string
	Description string
	Body        string
	Err         error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Platform != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Platform.DisplayName(), e.Operation)
	} else if e.Platform != "" {
		scope = e.Platform.DisplayName()
	} else if e.Operation != "" {
		scope = e.Operation
	}

	detail := e.Description
	if detail == "" {
		detail = e.Code
	}
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" && e.Body != "" {
		detail = e.Body
	}

	if e.Status != 0 {
		if detail != "" {
			return fmt.Sprintf("%s failed (status %d): %s", scope, e.Status, detail)
		}
		return fmt.Sprintf("%s failed (status %d)", scope, e.Status)
	}
	if detail != "" {
		return fmt.Sprintf("%s failed: %s", scope, detail)
	}
	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Metadata returns the diagnostic fields. The raw body is included because
// provider error bodies never carry issued tokens.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Platform != "" {
		meta["platform"] = string(e.Platform)
	}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Description != "" {
		meta["description"] = e.Description
	}
	if e.Body != "" {
		meta["body"] = e.Body
	}
	return meta
}

// ProviderStatus extracts the provider HTTP status from err, or 0.
func ProviderStatus(err error) int {
	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr.Status
	}
	return 0
}
