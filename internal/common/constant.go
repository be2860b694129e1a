package common

// AccountIDHeaderName is the HTTP header carrying the authenticated account
// identifier on requests to the Blink backend API.
const AccountIDHeaderName = "X-Blink-Account-Id"
