package condense

// SecretScrubber removes secrets from fragment content before it is stored.
type SecretScrubber interface {
	// Scrub removes secrets from the content, returning scrubbed version.
	Scrub(content string) (string, error)
}
