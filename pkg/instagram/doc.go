// Package instagram implements the scraping lookup source against the
// Instagram web profile endpoint.
//
// It requires an authenticated session (session id and CSRF token captured
// from a logged-in browser) and maps the endpoint's responses onto the
// lookup Outcome contract. Session expiry, anti-automation challenges, and
// 400/403 denials are classified as fatal signals because continuing on an
// account that Instagram has flagged risks a permanent block.
package instagram
