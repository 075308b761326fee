package urlnorm

import "errors"

var (
	// ErrUnparsable is returned when the base or href is not a valid URL reference
	ErrUnparsable = errors.New("unparsable url")
	// ErrNoScheme is returned when resolution yields a URL without a scheme
	ErrNoScheme = errors.New("url has no scheme")
	// ErrNoHost is returned when resolution yields a URL without a host
	ErrNoHost = errors.New("url has no host")
)
