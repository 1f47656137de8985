// Package auth implements master-key request signing for the DocumentDB
// REST API. Every outbound request carries an authorization token derived
// from the request verb, the addressed resource, and the request date,
// signed with the account's base64-encoded master key.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Token scheme constants. The service only accepts master-key tokens from
// this client; resource tokens are a separate authorization model.
const (
	keyTypeMaster = "master"
	tokenVersion  = "1.0"
)

// AuthenticationError indicates the signing inputs were malformed. It is
// fatal: requests failing token generation are never sent.
type AuthenticationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication: %s", e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Sign computes the authorization token for a single request.
//
// verb is the HTTP method (GET, POST, PUT or DELETE, any case). resourceType
// identifies the resource kind ("dbs", "colls", "docs", "offers", ...).
// resourceLink is the hierarchical path of the addressed resource instance
// and may be empty for account-scope feeds such as /dbs or /offers. date is
// the HTTP-date the request will carry in x-ms-date; the server recomputes
// the signature from that header, so the two must match exactly. masterKey
// is the account's base64-encoded master key.
//
// The token is deterministic: identical inputs always produce the identical
// token. Sign performs no I/O and is safe for concurrent use. Tokens must be
// generated fresh per request because the signed date has to be current.
func Sign(verb, resourceType, resourceLink, date, masterKey string) (string, error) {
	if verb == "" {
		return "", &AuthenticationError{Reason: "verb is required"}
	}
	if resourceType == "" {
		return "", &AuthenticationError{Reason: "resource type is required"}
	}
	if date == "" {
		return "", &AuthenticationError{Reason: "date is required"}
	}
	if masterKey == "" {
		return "", &AuthenticationError{Reason: "master key is required"}
	}

	v := strings.ToLower(verb)
	switch v {
	case "get", "post", "put", "delete":
	default:
		return "", &AuthenticationError{Reason: fmt.Sprintf("unsupported verb %q", verb)}
	}

	key, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return "", &AuthenticationError{Reason: "master key is not valid base64", Err: err}
	}

	// Verb, resource type and date are case-folded before signing; the
	// resource link is signed as-is. The fifth field is defined by the
	// protocol but never populated, leaving the payload with a double
	// trailing newline.
	payload := strings.Join([]string{
		v,
		strings.ToLower(resourceType),
		resourceLink,
		strings.ToLower(date),
		"",
	}, "\n") + "\n"

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// The scheme prefix is percent-encoded and lower-cased; the signature is
	// percent-encoded with its case preserved. The server decodes both, so
	// only the prefix casing is normative.
	prefix := strings.ToLower(url.QueryEscape("type=" + keyTypeMaster + "&ver=" + tokenVersion + "&sig="))
	return prefix + url.QueryEscape(signature), nil
}
