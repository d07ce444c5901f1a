// Package oauth2x adapts golang.org/x/oauth2 to the adapter contract used by
// the standards compliant platforms.
package oauth2x

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"golang.org/x/oauth2"
)

// Exchange trades code plus PKCE verifier. The config must pin its
// Endpoint.AuthStyle so the library never probes a second style.
func Exchange(ctx context.Context, conf *oauth2.Config, client *http.Client, platform oauth.Platform, code, verifier string, opts ...oauth2.AuthCodeOption) (*oauth.OAuthTokens, error) {
	opts = append(opts, oauth2.VerifierOption(verifier))
	tok, err := conf.Exchange(withClient(ctx, client), code, opts...)
	if err != nil {
		return nil, ProviderError(platform, "exchange", err)
	}
	return Convert(tok, time.Now()), nil
}

// Refresh runs a grant_type=refresh_token request.
func Refresh(ctx context.Context, conf *oauth2.Config, client *http.Client, platform oauth.Platform, refreshToken string) (*oauth.OAuthTokens, error) {
	src := conf.TokenSource(withClient(ctx, client), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, ProviderError(platform, "refresh", err)
	}
	return Convert(tok, time.Now()), nil
}

// Convert maps a library token. ExpiresIn falls back to the remaining
// lifetime when the provider only produced an absolute expiry.
func Convert(tok *oauth2.Token, now time.Time) *oauth.OAuthTokens {
	if tok == nil {
		return nil
	}

	out := &oauth.OAuthTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
		TokenType:    tok.TokenType,
	}
	if out.ExpiresIn <= 0 && !tok.Expiry.IsZero() {
		if secs := int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second); secs > 0 {
			out.ExpiresIn = secs
		}
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	if out.TokenType == "" {
		out.TokenType = "bearer"
	}
	return out
}

// ProviderError normalizes library failures into *oauth.ProviderError.
func ProviderError(platform oauth.Platform, operation string, err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr != nil {
		perr := &oauth.ProviderError{
			Platform:    platform,
			Operation:   operation,
			Code:        rerr.ErrorCode,
			Description: rerr.ErrorDescription,
			Body:        strings.TrimSpace(string(rerr.Body)),
			Err:         err,
		}
		if rerr.Response != nil {
			perr.Status = rerr.Response.StatusCode
		}
		return perr
	}

	return &oauth.ProviderError{
		Platform:  platform,
		Operation: operation,
		Err:       err,
	}
}

func withClient(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}
