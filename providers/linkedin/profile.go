package linkedin

import (
	oauth "github.com/noobskies/socialflow-sub001"
)

// userInfo is the OpenID Connect userinfo payload.
type userInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type apiErrorBody struct {
	Status           int    `json:"status"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Code             string `json:"code"`
	Message          string `json:"message"`
}

func (b apiErrorBody) code() string {
	return b.Code
}

// mapProfile uses the email as username since userinfo carries no handle.
func mapProfile(info *userInfo) (*oauth.UserProfile, error) {
	if info == nil || info.Sub == "" {
		return nil, providerError("profile", 0, "missing_sub", "userinfo response has no subject", nil)
	}

	username := info.Email
	if username == "" {
		username = info.Sub
	}
	name := info.Name
	if name == "" {
		name = joinName(info.GivenName, info.FamilyName)
	}

	return &oauth.UserProfile{
		ID:          info.Sub,
		Username:    username,
		DisplayName: name,
		Avatar:      info.Picture,
	}, nil
}

func joinName(given, family string) string {
	switch {
	case given == "":
		return family
	case family == "":
		return given
	}
	return given + " " + family
}
