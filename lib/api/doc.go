// Package api serves a document store over HTTP.
//
// Documents are addressed by their logical key, e.g. GET /docs/balance or
// PUT /docs/economy/user_balances.json. Conflicts are answered with 409, invalid
// documents with 400 and remote failures with 502. Reads never fail: a missing
// document is returned as {}.
package api
