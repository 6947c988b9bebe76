package cachestore

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// NewEntryFromResponse drains resp.Body into a storable entry. The response
// body is consumed; callers replay it via Entry.WriteTo.
func NewEntryFromResponse(resp *http.Response) (*Entry, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now(),
	}, nil
}

// WriteTo replays the captured response to a client.
func (e *Entry) WriteTo(w http.ResponseWriter) {
	for key, values := range e.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(e.Status)
	if len(e.Body) > 0 {
		_, _ = w.Write(e.Body)
	}
}
