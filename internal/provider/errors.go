package provider

import "errors"

// ErrEnrichmentUnavailable wraps every failure of an enrichment provider:
// timeouts, quota exhaustion, transport errors and malformed payloads.
var ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

// ErrQuotaExceeded marks a refusal because the service quota is used up.
var ErrQuotaExceeded = errors.New("quota exceeded")
