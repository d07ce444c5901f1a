// Package oauth manages the lifecycle of social platform OAuth tokens:
// authorization code with PKCE flows, encrypted token storage and refresh.
//
// Flow:
//   - Orchestrator.InitiateOAuth stores a one-time OAuthState (state value
//     plus PKCE verifier, 10 minute TTL) and returns the consent URL.
//   - Orchestrator.HandleCallback consumes that state atomically, exchanges
//     the code through the PlatformAdapter, resolves the profile and upserts
//     the SocialAccount keyed by (user, platform). The upsert is the only
//     write, so a failed callback leaves no partial account behind.
//
// Tokens:
//   - TokenCipher seals every token with AES-256-GCM before it reaches an
//     AccountStore. Plaintext only exists in memory and never in logs.
//   - RefreshAccount renews tokens according to the adapter RefreshMode and
//     moves the account out of ACTIVE when renewal fails.
//
// Errors:
//   - Failures are go-errors values with stable text codes. Branch on
//     KindOf(err) rather than on messages.
//
// Platform adapters live under providers/, stores under repository/.
package oauth
