package pinterest

import (
	"strconv"

	oauth "github.com/noobskies/socialflow-sub001"
)

type userAccount struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	BusinessName string `json:"business_name"`
	ProfileImage string `json:"profile_image"`
	AccountType  string `json:"account_type"`
}

type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (b apiErrorBody) code() string {
	if b.Code == 0 {
		return ""
	}
	return strconv.Itoa(b.Code)
}

// mapProfile falls back to the username as id for accounts created before
// Pinterest exposed numeric ids.
func mapProfile(account *userAccount) (*oauth.UserProfile, error) {
	id := account.ID
	if id == "" {
		id = account.Username
	}
	if id == "" {
		return nil, providerError("profile", 0, "missing_user", "user account response has no id", nil)
	}

	name := account.BusinessName
	if name == "" {
		name = account.Username
	}
	return &oauth.UserProfile{
		ID:          id,
		Username:    account.Username,
		DisplayName: name,
		Avatar:      account.ProfileImage,
	}, nil
}
