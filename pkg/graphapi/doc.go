// Package graphapi implements the official lookup source on the Instagram
// Graph API business_discovery edge.
//
// The official API only resolves public business and creator accounts, so
// most personal profiles come back as a miss; those are classified as
// transient and stay pending for the scraping source. Because this source
// cannot endanger the account, its pacing runs near the documented API
// limit, guided by the X-App-Usage headers.
package graphapi
