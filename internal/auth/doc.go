// Package auth is the Auth Adapter guarding the administrative API.
//
// An Authenticator verifies credentials with one of three strategies: local
// users with bcrypt hashes, an OpenID Connect userinfo endpoint, or the
// GitHub user API. A successful login is exchanged for a short-lived HS256
// session token; admin rights come only from the configured allowlist.
package auth
