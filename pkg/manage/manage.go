// Package manage provides HTTP handlers for stamping photos.
package manage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tstromberg/mohr/pkg/mohr"
	"k8s.io/klog/v2"
)

// CaptionHeader carries the caption text of a stamped photo.
const CaptionHeader = "X-Mohr-Caption"

// Server stamps photos sent over HTTP.
type Server struct {
	p        *mohr.Processor
	maxBytes int64
}

// New creates a new server.
func New(p *mohr.Processor) *Server {
	return &Server{
		p:        p,
		maxBytes: p.Config().MaxBytes,
	}
}

// Handler routes requests to the server's handlers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stamp", s.StampHandler())
	mux.HandleFunc("/healthz", s.HealthHandler())
	return mux
}

// HealthHandler reports that the server is up.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	}
}

// StampHandler accepts a photo as the request body or as the multipart field
// "photo" and responds with the stamped JPEG. With ?mode=now the current time
// is stamped instead of the photo's own. With ?save=true the result is also
// exported to the output and share directories.
func (s *Server) StampHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "use POST", http.StatusMethodNotAllowed)
			return
		}

		mode := r.URL.Query().Get("mode")
		switch mode {
		case "", mohr.ModeAuto, mohr.ModeNow:
		default:
			http.Error(w, fmt.Sprintf("unknown mode %q", mode), http.StatusBadRequest)
			return
		}

		name, data, err := s.read(w, r)
		if err != nil {
			klog.Warningf("read upload: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		sess, err := s.p.Stamp(r.Context(), mohr.Request{Name: name, Data: data, Mode: mode})
		if err != nil {
			klog.Warningf("stamp %s: %v", name, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save {
			out := name
			if out == "" {
				out = "upload"
			}
			if _, err := s.p.Export(sess, mohr.OutputName(out)); err != nil {
				klog.Errorf("export: %v", err)
				http.Error(w, "unable to save", http.StatusInternalServerError)
				return
			}
		}

		var buf bytes.Buffer
		if err := sess.WriteJPEG(&buf); err != nil {
			klog.Errorf("encode: %v", err)
			http.Error(w, "unable to encode", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		// header values must be ASCII-safe
		w.Header().Set(CaptionHeader, url.PathEscape(sess.Caption))
		w.Header().Set("X-Mohr-Source", string(sess.Source))
		if _, err := w.Write(buf.Bytes()); err != nil {
			klog.Warningf("write response: %v", err)
		}
		klog.Infof("stamped %s: %dx%d %s", name, sess.Full.Bounds().Dx(), sess.Full.Bounds().Dy(), sess.Source)
	}
}

// read returns the uploaded file name and contents.
func (s *Server) read(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+1<<20)

	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		f, h, err := r.FormFile("photo")
		if err != nil {
			return "", nil, fmt.Errorf("form field photo: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return "", nil, fmt.Errorf("read photo: %w", err)
		}
		return h.Filename, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", nil, mohr.ErrTooLarge
		}
		return "", nil, fmt.Errorf("read body: %w", err)
	}
	return r.URL.Query().Get("name"), data, nil
}
