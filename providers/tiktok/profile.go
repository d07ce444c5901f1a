package tiktok

import (
	oauth "github.com/noobskies/socialflow-sub001"
)

type tokenFields struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	OpenID           string `json:"open_id"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
}

// tokenResponse covers the flat v2 body and the older data envelope, where
// failures are reported as data.error_code/data.description.
type tokenResponse struct {
	tokenFields
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	LogID            string `json:"log_id"`
	Data             *struct {
		tokenFields
		ErrorCode   int    `json:"error_code"`
		Error       string `json:"error"`
		Description string `json:"description"`
	} `json:"data"`
}

func (r tokenResponse) failure() (string, string, bool) {
	if r.Error != "" {
		return r.Error, r.ErrorDescription, true
	}
	if r.Data != nil {
		if r.Data.Error != "" {
			return r.Data.Error, r.Data.Description, true
		}
		if r.Data.ErrorCode != 0 {
			return "error_code", r.Data.Description, true
		}
	}
	return "", "", false
}

func (r tokenResponse) token() tokenFields {
	if r.AccessToken == "" && r.Data != nil {
		return r.Data.tokenFields
	}
	return r.tokenFields
}

type tiktokUser struct {
	OpenID      string `json:"open_id"`
	UnionID     string `json:"union_id"`
	AvatarURL   string `json:"avatar_url"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

func (e apiError) failed() bool {
	return e.Code != "" && e.Code != "ok"
}

type userInfoResponse struct {
	Data struct {
		User tiktokUser `json:"user"`
	} `json:"data"`
	Error apiError `json:"error"`
}

func mapProfile(user *tiktokUser) (*oauth.UserProfile, error) {
	if user.OpenID == "" {
		return nil, providerError("profile", 0, "missing_user", "user info response has no open_id", nil)
	}

	username := user.Username
	if username == "" {
		username = user.DisplayName
	}
	return &oauth.UserProfile{
		ID:          user.OpenID,
		Username:    username,
		DisplayName: user.DisplayName,
		Avatar:      user.AvatarURL,
	}, nil
}
