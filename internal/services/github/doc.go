// Package github posts archive outcomes back to the issue that requested
// them, using the GitHub REST API with token authentication.
package github
