package docpipe

import "errors"

// ErrCodecUnavailable marks failures caused by a codec that is not part of
// this build rather than by the file itself. Callers consolidate these into
// a single remediation hint per distinct message.
var ErrCodecUnavailable = errors.New("codec unavailable")

// codecHint returns the remediation message for dependency errors, or "".
func codecHint(err error) string {
	if errors.Is(err, ErrCodecUnavailable) {
		return err.Error()
	}
	return ""
}
