package httpds

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("httpds")

// Remote is a datasource.Source backed by one URL.
type Remote struct {
	client *Client
	url    string
}

// NewRemote binds url to client.
func NewRemote(client *Client, url string) *Remote {
	return &Remote{client: client, url: url}
}

// Path returns the URL.
func (r *Remote) Path() string { return r.url }

// Open fetches the document.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	return r.client.Fetch(ctx, r.url)
}

// Join appends name to the path of base, keeping its query string.
func Join(base, name string) string {
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + name
	}
	return u.JoinPath(name).String()
}
