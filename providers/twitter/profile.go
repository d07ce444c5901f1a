package twitter

import (
	oauth "github.com/noobskies/socialflow-sub001"
)

type twitterUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

// userResponse accepts both the v2 data envelope and a flat user object.
type userResponse struct {
	Data *twitterUser `json:"data"`
	twitterUser
}

func (r userResponse) user() *twitterUser {
	if r.Data != nil {
		return r.Data
	}
	return &r.twitterUser
}

type apiErrorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Error  string `json:"error"`
	Desc   string `json:"error_description"`
	Errors []struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"errors"`
}

func (b apiErrorBody) code() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Title
}

func (b apiErrorBody) message() string {
	switch {
	case b.Desc != "":
		return b.Desc
	case b.Detail != "":
		return b.Detail
	case len(b.Errors) > 0:
		return b.Errors[0].Message
	}
	return ""
}

func mapProfile(user *twitterUser) (*oauth.UserProfile, error) {
	if user == nil || user.ID == "" {
		return nil, providerError("profile", 0, "missing_user", "profile response has no user id", nil)
	}

	return &oauth.UserProfile{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.Name,
		Avatar:      user.ProfileImageURL,
	}, nil
}
