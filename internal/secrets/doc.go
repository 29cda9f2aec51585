// Package secrets provides secret detection and redaction using the
// Gitleaks SDK.
//
// Fragment content and inbound user input pass through scrubbing before they
// are stored or echoed back, so checkpoints, condensed context, and event
// streams never carry raw credentials. Detection metadata (rule IDs, counts)
// is preserved for logging while the secret values themselves are replaced
// with redaction markers.
package secrets
