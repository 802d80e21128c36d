package webhook

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/utils"
)

const (
	HeaderSignature      = "x-webhook-signature"
	HeaderTimestamp      = "x-webhook-timestamp"
	HeaderIdempotencyKey = "x-idempotency-key"
)

// DefaultTolerance is how old a timestamp Verify accepts.
const DefaultTolerance = 5 * time.Minute

// Sign returns the hex HMAC-SHA256 of "<unix>.<body>".
func Sign(secret []byte, ts time.Time, body []byte) string {
	msg := make([]byte, 0, len(body)+12)
	msg = strconv.AppendInt(msg, ts.Unix(), 10)
	msg = append(msg, '.')
	msg = append(msg, body...)
	return utils.HMACSHA256Hex(secret, msg)
}

// Verify checks a signed request the way a tenant receiver does. Requests
// whose timestamp is further than tolerance from now are rejected as replays.
func Verify(secret []byte, h http.Header, body []byte, now time.Time, tolerance time.Duration) error {
	sig := h.Get(HeaderSignature)
	raw := h.Get(HeaderTimestamp)
	if sig == "" || raw == "" {
		return appErr.Signature("missing signature headers")
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return appErr.Signature("malformed timestamp")
	}
	ts := time.Unix(unix, 0)
	if d := now.Sub(ts); d > tolerance || d < -tolerance {
		return appErr.Signature(fmt.Sprintf("timestamp outside %s window", tolerance))
	}
	if !utils.EqualHex(Sign(secret, ts, body), sig) {
		return appErr.Signature("signature mismatch")
	}
	return nil
}
