package tee

import (
	"bytes"
	"net/http"
)

// Writer wraps an http.ResponseWriter, relaying everything to the client
// while keeping a copy of the status code and body for inspection once the
// inner handler has finished.
type Writer struct {
	rw          http.ResponseWriter
	body        *bytes.Buffer
	status      int
	wroteHeader bool
}

func New(w http.ResponseWriter) *Writer {
	return &Writer{
		rw:   w,
		body: &bytes.Buffer{},
	}
}

// Implementation of http.ResponseWriter
func (t *Writer) Header() http.Header {
	return t.rw.Header()
}

// Implementation of http.ResponseWriter
func (t *Writer) WriteHeader(statusCode int) {
	if t.wroteHeader {
		return
	}
	t.wroteHeader = true
	t.status = statusCode
	t.rw.WriteHeader(statusCode)
}

// Implementation of http.ResponseWriter
func (t *Writer) Write(b []byte) (int, error) {
	if !t.wroteHeader {
		t.WriteHeader(http.StatusOK)
	}
	t.body.Write(b)
	return t.rw.Write(b)
}

// StatusCode returns the status code of the response.
func (t *Writer) StatusCode() int {
	if t.status == 0 {
		return http.StatusOK
	}
	return t.status
}

// Body returns the recorded response body.
func (t *Writer) Body() []byte {
	return t.body.Bytes()
}
