package youtube

import (
	"context"
	"errors"

	oauth "github.com/noobskies/socialflow-sub001"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

func (a *Adapter) fetchChannel(ctx context.Context, accessToken string) (*yt.Channel, error) {
	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, a.httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)

	svc, err := yt.NewService(ctx,
		option.WithHTTPClient(client),
		option.WithEndpoint(a.config.APIBaseURL),
	)
	if err != nil {
		return nil, providerError("profile", 0, "client_init", "failed to create YouTube client", err)
	}

	resp, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, apiError(err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return resp.Items[0], nil
}

func apiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr != nil {
		code := ""
		if len(gerr.Errors) > 0 {
			code = gerr.Errors[0].Reason
		}
		perr := providerError("profile", gerr.Code, code, gerr.Message, err)
		perr.Body = gerr.Body
		return perr
	}
	return providerError("profile", 0, "", "", err)
}

func mapChannel(ch *yt.Channel) *oauth.UserProfile {
	profile := &oauth.UserProfile{ID: ch.Id}
	if ch.Snippet == nil {
		profile.Username = ch.Id
		return profile
	}

	profile.DisplayName = ch.Snippet.Title
	profile.Username = ch.Snippet.CustomUrl
	if profile.Username == "" {
		profile.Username = ch.Snippet.Title
	}
	if th := ch.Snippet.Thumbnails; th != nil && th.Default != nil {
		profile.Avatar = th.Default.Url
	}
	return profile
}
