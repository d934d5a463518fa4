package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"flashdl/internal/media"
	"flashdl/internal/metrics"
)

// RelayBufferSize is the fixed chunk size used when relaying bytes.
const RelayBufferSize = 32 * 1024

const (
	kindDirect = "direct"
	kindMerge  = "merge"
	kindImage  = "image"
)

func deliveryKind(spec media.FetchSpec) string {
	switch {
	case spec.Kind == media.Image:
		return kindImage
	case spec.RequiresMerge():
		return kindMerge
	default:
		return kindDirect
	}
}

// Delivery is an opened byte source plus the headers to send with it.
type Delivery struct {
	ContentType string
	Disposition string
	Filename    string // name offered in Disposition
	Length      int64  // -1 when unknown

	kind      string
	body      io.ReadCloser
	cleanup   func()
	closeOnce sync.Once
}

// Send writes headers and relays the body to w until EOF, a write error,
// or ctx cancellation. It returns the number of body bytes written.
func (d *Delivery) Send(ctx context.Context, w http.ResponseWriter) (int64, error) {
	h := w.Header()
	h.Set("Content-Type", d.ContentType)
	h.Set("Content-Disposition", d.Disposition)
	h.Set("X-Content-Type-Options", "nosniff")
	if d.Length >= 0 {
		h.Set("Content-Length", strconv.FormatInt(d.Length, 10))
	}
	w.WriteHeader(http.StatusOK)

	return d.CopyTo(ctx, w)
}

// CopyTo relays the body to w without any HTTP framing.
func (d *Delivery) CopyTo(ctx context.Context, w io.Writer) (int64, error) {
	n, err := relay(ctx, w, d.body)
	metrics.AddDeliveredBytes(d.kind, n)
	return n, err
}

// Close releases the upstream body and removes any local files. It is safe
// to call more than once.
func (d *Delivery) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.body.Close()
		if d.cleanup != nil {
			d.cleanup()
		}
	})
	return err
}

// relay copies src to dst in RelayBufferSize chunks, flushing after each
// write so slow clients see progress.
func relay(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, RelayBufferSize)
	flusher, _ := dst.(http.Flusher)

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
