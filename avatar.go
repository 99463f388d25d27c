package account

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

const gravatarHost = "www.gravatar.com"

// AvatarOptions controls the gravatar URL we derive at registration
type AvatarOptions struct {
	// Size in pixels, sent as "s"
	Size int
	// Rating is the maximum content rating, sent as "r"
	Rating string
	// Default is the fallback image when the email has no gravatar, sent as "d"
	Default string
	// Protocol is prefixed to the URL, empty keeps it protocol relative
	Protocol string
}

// DefaultAvatarOptions: 200px, pg rated, mystery-man fallback
var DefaultAvatarOptions = AvatarOptions{
	Size:    200,
	Rating:  "pg",
	Default: "mm",
}

// AvatarURL derives the gravatar URL for email. It has no side effects,
// the same email and options always produce the same URL.
func AvatarURL(email string, opts AvatarOptions) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))

	q := url.Values{}
	if opts.Size > 0 {
		q.Set("s", strconv.Itoa(opts.Size))
	}
	if opts.Rating != "" {
		q.Set("r", opts.Rating)
	}
	if opts.Default != "" {
		q.Set("d", opts.Default)
	}

	var b strings.Builder
	if opts.Protocol != "" {
		b.WriteString(strings.TrimSuffix(opts.Protocol, ":"))
		b.WriteString(":")
	}
	b.WriteString("//")
	b.WriteString(gravatarHost)
	b.WriteString("/avatar/")
	b.WriteString(hex.EncodeToString(sum[:]))

	if encoded := q.Encode(); encoded != "" {
		b.WriteString("?")
		b.WriteString(encoded)
	}

	return b.String()
}
