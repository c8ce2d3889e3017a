package backend

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// compressionTransport wraps an http.RoundTripper to advertise and
// transparently decode gzip, brotli, and zstd response encodings. Both
// providers compress aggressively, and the legacy one serves whole subtitle
// payloads gzip-encoded.
type compressionTransport struct {
	transport http.RoundTripper
}

func newCompressionTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &compressionTransport{transport: base}
}

// RoundTrip executes a single HTTP transaction and swaps the response body
// for a decoding reader when the server applied a known encoding.
func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = cloneRequest(req)
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	}

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Nothing to decode for bodyless responses (HEAD, 204, 304).
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	encoding := outerEncoding(resp.Header.Get("Content-Encoding"))
	var reader io.ReadCloser
	switch encoding {
	case "":
		return resp, nil
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		reader = gz
	case "br":
		reader = io.NopCloser(brotli.NewReader(resp.Body))
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		reader = zr.IOReadCloser()
	default:
		// Unknown encoding, hand the body through untouched.
		return resp, nil
	}

	resp.Body = &decodedBody{reader: reader, original: resp.Body}

	// The encoding headers no longer describe the body.
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1

	return resp, nil
}

// decodedBody closes both the decoder and the underlying network body.
type decodedBody struct {
	reader   io.ReadCloser
	original io.ReadCloser
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decodedBody) Close() error {
	readerErr := d.reader.Close()
	bodyErr := d.original.Close()
	if readerErr != nil {
		return readerErr
	}
	return bodyErr
}

func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = make(http.Header, len(req.Header))
	for k, v := range req.Header {
		r.Header[k] = append([]string(nil), v...)
	}
	return r
}

// outerEncoding returns the last (outermost) encoding from a Content-Encoding
// header, normalized to lowercase, or "" when the body is not encoded.
func outerEncoding(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.Split(header, ",")
	return strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
}
