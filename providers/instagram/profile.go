package instagram

import (
	"encoding/json"

	oauth "github.com/noobskies/socialflow-sub001"
)

// shortTokenResponse accepts the flat body and the data array variant.
type shortTokenResponse struct {
	AccessToken string `json:"access_token"`
	Data        []struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

func (r shortTokenResponse) token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	if len(r.Data) > 0 {
		return r.Data[0].AccessToken
	}
	return ""
}

type longTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type igUser struct {
	ID                string      `json:"id"`
	UserID            json.Number `json:"user_id"`
	Username          string      `json:"username"`
	Name              string      `json:"name"`
	ProfilePictureURL string      `json:"profile_picture_url"`
}

type apiErrorBody struct {
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	Error        struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (b apiErrorBody) code() string {
	if b.ErrorType != "" {
		return b.ErrorType
	}
	return b.Error.Type
}

func (b apiErrorBody) message() string {
	if b.ErrorMessage != "" {
		return b.ErrorMessage
	}
	return b.Error.Message
}

func mapProfile(user *igUser) (*oauth.UserProfile, error) {
	id := user.UserID.String()
	if id == "" {
		id = user.ID
	}
	if id == "" {
		return nil, providerError("profile", 0, "missing_user", "profile response has no user id", nil)
	}

	name := user.Name
	if name == "" {
		name = user.Username
	}
	return &oauth.UserProfile{
		ID:          id,
		Username:    user.Username,
		DisplayName: name,
		Avatar:      user.ProfilePictureURL,
	}, nil
}
