package facebook

import (
	"strconv"

	oauth "github.com/noobskies/socialflow-sub001"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type page struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Picture  struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

type accountsResponse struct {
	Data []page `json:"data"`
}

type graphErrorBody struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

func (b graphErrorBody) code() string {
	if b.Error.Type != "" {
		return b.Error.Type
	}
	if b.Error.Code != 0 {
		return strconv.Itoa(b.Error.Code)
	}
	return ""
}

// mapPage uses the page handle when one is set, the page name otherwise.
func mapPage(p *page) *oauth.UserProfile {
	username := p.Username
	if username == "" {
		username = p.Name
	}
	return &oauth.UserProfile{
		ID:          p.ID,
		Username:    username,
		DisplayName: p.Name,
		Avatar:      p.Picture.Data.URL,
	}
}
