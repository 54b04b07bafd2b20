package transport

import (
	"context"
	"mime"
	"net/url"
	"os"
	"path/filepath"
)

// File fetches file:// URLs from the local filesystem.
type File struct{}

func (File) Fetch(ctx context.Context, rawURL string, progress ProgressFunc) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	f, err := os.Open(filepath.FromSlash(u.Path))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	var size int64 = -1
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	body, err := readAll(ctx, f, size, progress)
	if err != nil {
		return nil, classify(ctx, rawURL, err)
	}
	return &Response{Body: body, ContentType: mime.TypeByExtension(filepath.Ext(u.Path))}, nil
}
