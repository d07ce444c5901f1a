// Package providers assembles the platform adapters from configuration.
package providers

import (
	"net/http"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/providers/facebook"
	"github.com/noobskies/socialflow-sub001/providers/instagram"
	"github.com/noobskies/socialflow-sub001/providers/linkedin"
	"github.com/noobskies/socialflow-sub001/providers/pinterest"
	"github.com/noobskies/socialflow-sub001/providers/tiktok"
	"github.com/noobskies/socialflow-sub001/providers/twitter"
	"github.com/noobskies/socialflow-sub001/providers/youtube"
)

// Option customizes adapter construction.
type Option func(*options)

type options struct {
	client    *http.Client
	platforms []oauth.Platform
}

// WithHTTPClient shares one client across every adapter.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.client = client
		}
	}
}

// WithPlatforms limits construction to the given platforms.
func WithPlatforms(platforms ...oauth.Platform) Option {
	return func(o *options) {
		o.platforms = platforms
	}
}

// New builds one adapter per platform. Credentials are copied as found,
// missing values surface as configuration errors when a flow starts.
func New(cfg oauth.Config, opts ...Option) []oauth.PlatformAdapter {
	o := &options{platforms: oauth.AllPlatforms()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.client == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = oauth.DefaultHTTPTimeout
		}
		o.client = &http.Client{Timeout: timeout}
	}

	adapters := make([]oauth.PlatformAdapter, 0, len(o.platforms))
	for _, platform := range o.platforms {
		if adapter := build(cfg, platform, o.client); adapter != nil {
			adapters = append(adapters, adapter)
		}
	}
	return adapters
}

func build(cfg oauth.Config, platform oauth.Platform, client *http.Client) oauth.PlatformAdapter {
	creds := cfg.Credentials(platform)
	redirect := cfg.CallbackURL(platform)

	switch platform {
	case oauth.PlatformTwitter:
		return twitter.New(twitter.Config{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, RedirectURL: redirect, HTTPClient: client})
	case oauth.PlatformLinkedIn:
		return linkedin.New(linkedin.Config{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, RedirectURL: redirect, HTTPClient: client})
	case oauth.PlatformFacebook:
		return facebook.New(facebook.Config{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, RedirectURL: redirect, HTTPClient: client})
	case oauth.PlatformInstagram:
		return instagram.New(instagram.Config{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, RedirectURL: redirect, HTTPClient: client})
	case oauth.PlatformPinterest:
		return pinterest.New(pinterest.Config{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, RedirectURL: redirect, HTTPClient: client})
	case oauth.PlatformTikTok:
		return tiktok.New(tiktok.Config{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, RedirectURL: redirect, HTTPClient: client})
	case oauth.PlatformYouTube:
		return youtube.New(youtube.Config{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, RedirectURL: redirect, HTTPClient: client})
	}
	return nil
}
