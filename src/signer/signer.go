// Package signer builds the signed header set required by the SimpleTex API.
//
// The pre-sign string is every body field as key=value sorted by key, followed by
// the header fields sorted by name (app-id, random-str, timestamp) and finally
// secret=<secret>, all joined with '&'. The signature is the lowercase hex MD5 of
// that string. The server verifies exactly this construction, so it must not change.
package signer

import (
	"crypto/md5"
	"encoding/hex"
	"math/rand/v2"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderTimestamp = "timestamp"
	HeaderNonce     = "random-str"
	HeaderAppID     = "app-id"
	HeaderSign      = "sign"

	NonceLength   = 16
	nonceAlphabet = "AaBbCcDdEeFfGgHhIiJjKkLlMmNnOoPpQqRrSsTtUuVvWwXxYyZz0123456789"
)

// Header is the signed header set of one request. It is single-use.
type Header struct {
	Timestamp string
	Nonce     string
	AppID     string
	Sign      string
}

// Map returns the header set keyed by wire names.
func (h Header) Map() map[string]string {
	return map[string]string{
		HeaderTimestamp: h.Timestamp,
		HeaderNonce:     h.Nonce,
		HeaderAppID:     h.AppID,
		HeaderSign:      h.Sign,
	}
}

// Apply sets the header set on an outgoing HTTP request header.
func (h Header) Apply(dst http.Header) {
	for k, v := range h.Map() {
		dst.Set(k, v)
	}
}

// Signer produces headers. Now and Nonce default to the wall clock and a random
// alphanumeric string; tests replace them.
type Signer struct {
	Now   func() time.Time
	Nonce func() string
}

// New returns a Signer using the wall clock and a random nonce.
func New() *Signer {
	return &Signer{Now: time.Now, Nonce: RandomNonce}
}

// Sign builds the header set for the given body fields and credentials.
func (s *Signer) Sign(fields map[string]string, appID, secret string) Header {
	now := time.Now
	if s != nil && s.Now != nil {
		now = s.Now
	}
	nonce := RandomNonce
	if s != nil && s.Nonce != nil {
		nonce = s.Nonce
	}

	h := Header{
		Timestamp: strconv.FormatInt(now().Unix(), 10),
		Nonce:     nonce(),
		AppID:     appID,
	}
	h.Sign = Digest(PreSignString(fields, h, secret))
	return h
}

// PreSignString returns the exact string that is hashed into the signature.
func PreSignString(fields map[string]string, h Header, secret string) string {
	params := make([]string, 0, len(fields)+4)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params = append(params, k+"="+fields[k])
	}

	headerFields := map[string]string{
		HeaderTimestamp: h.Timestamp,
		HeaderNonce:     h.Nonce,
		HeaderAppID:     h.AppID,
	}
	headerKeys := []string{HeaderTimestamp, HeaderNonce, HeaderAppID}
	sort.Strings(headerKeys)
	for _, k := range headerKeys {
		params = append(params, k+"="+headerFields[k])
	}

	params = append(params, "secret="+secret)
	return strings.Join(params, "&")
}

// Digest returns the lowercase hex MD5 of s.
func Digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// RandomNonce returns a NonceLength-character alphanumeric string.
func RandomNonce() string {
	b := make([]byte, NonceLength)
	for i := range b {
		b[i] = nonceAlphabet[rand.IntN(len(nonceAlphabet))]
	}
	return string(b)
}
