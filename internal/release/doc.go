// Package release builds a caddy binary with xcaddy, derives a unique release tag from the
// binary's version, updates the repository README, publishes the commit and tag with git, and
// exports the results to the CI environment file.
package release
