package schwab

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrMissingCredentials = errors.New("app key and app secret are required")
	ErrNoToken            = errors.New("no token on file; run the OAuth bootstrap first")
	ErrNotConnected       = errors.New("streamer not connected")
	ErrLoginFailed        = errors.New("streamer login rejected")
	ErrTimeout            = errors.New("streamer request timeout")
)

// Streamer services the relay subscribes to.
const (
	ServiceOptions         = "LEVELONE_OPTIONS"
	ServiceEquities        = "LEVELONE_EQUITIES"
	ServiceAccountActivity = "ACCT_ACTIVITY"
)

// SubscribeMode selects the wire command for a subscription request. The
// streamer protocol distinguishes an initial SUBS (replaces the symbol list)
// from ADD (extends an existing subscription).
type SubscribeMode string

const (
	ModeInitial SubscribeMode = "SUBS"
	ModeAdd     SubscribeMode = "ADD"
)

// Handler receives one data message for a bound service.
type Handler func(msg DataMessage)

// DataMessage is one service payload from the streamer. Content is the raw
// item array; DecodeOptionItems / DecodeEquityItems parse it per service.
type DataMessage struct {
	Service   string          `json:"service"`
	Timestamp int64           `json:"timestamp"` // ms since epoch
	Content   json.RawMessage `json:"content"`
}

// Account is one entry from the account numbers endpoint.
type Account struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

// StreamerInfo is the streamer connection block from user preferences.
type StreamerInfo struct {
	SocketURL  string `json:"streamerSocketUrl"`
	CustomerID string `json:"schwabClientCustomerId"`
	CorrelID   string `json:"schwabClientCorrelId"`
	Channel    string `json:"schwabClientChannel"`
	FunctionID string `json:"schwabClientFunctionId"`
}

// Token is the cached OAuth token persisted at the configured token path.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token needs a refresh, with a safety
// margin so a token does not die mid-login.
func (t *Token) Expired() bool {
	return time.Now().After(t.ExpiresAt.Add(-time.Minute))
}

// Wire types

// request is one streamer command.
type request struct {
	Service    string            `json:"service"`
	Command    string            `json:"command"`
	RequestID  int64             `json:"requestid,string"`
	CustomerID string            `json:"SchwabClientCustomerId"`
	CorrelID   string            `json:"SchwabClientCorrelId"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// requestEnvelope wraps commands for the wire.
type requestEnvelope struct {
	Requests []request `json:"requests"`
}

// response is one command acknowledgement from the streamer.
type response struct {
	Service   string `json:"service"`
	Command   string `json:"command"`
	RequestID int64  `json:"requestid,string"`
	Content   struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"content"`
}

// frame is the top-level streamer message shape: any combination of command
// responses, data payloads, and notifications.
type frame struct {
	Response []response        `json:"response,omitempty"`
	Data     []DataMessage     `json:"data,omitempty"`
	Notify   []json.RawMessage `json:"notify,omitempty"`
}

// tokenResponse is the OAuth token endpoint reply.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// userPreferenceResponse carries the streamer connection info.
type userPreferenceResponse struct {
	StreamerInfo []StreamerInfo `json:"streamerInfo"`
}
