package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// echoHandler membalas body permintaan dengan Content-Type dan status dari query.
func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	w.Header().Set("Content-Type", r.URL.Query().Get("ct"))
	status := http.StatusOK
	if r.URL.Query().Get("fail") != "" {
		status = http.StatusConflict
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func gzipBytes(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		body           string
		gzipRequest    bool
		acceptEncoding string
		wantEncoding   string
	}{
		{
			name:           "json response is compressed",
			target:         "/api/surat?ct=application/json",
			body:           `{"status":"SUBMITTED"}`,
			acceptEncoding: "gzip, deflate",
			wantEncoding:   "gzip",
		},
		{
			name:         "client without gzip gets plain json",
			target:       "/api/surat?ct=application/json",
			body:         `{"status":"SUBMITTED"}`,
			wantEncoding: "",
		},
		{
			name:           "pdf is sent as is",
			target:         "/api/surat/1/pdf?ct=application/pdf",
			body:           "%PDF-1.3",
			acceptEncoding: "gzip",
			wantEncoding:   "",
		},
		{
			name:           "xlsx is sent as is",
			target:         "/api/laporan/surat.xlsx?ct=application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			body:           "PK",
			acceptEncoding: "gzip",
			wantEncoding:   "",
		},
		{
			name:           "error responses are not compressed",
			target:         "/api/staff/surat/1/verify?ct=application/json&fail=1",
			body:           `{"error":"konflik"}`,
			acceptEncoding: "gzip",
			wantEncoding:   "",
		},
		{
			name:           "gzip request body is decoded",
			target:         "/api/penilaian?ct=application/json",
			body:           `{"idSurat":1,"tahapRole":"RT","rating":5}`,
			gzipRequest:    true,
			acceptEncoding: "gzip",
			wantEncoding:   "gzip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reqBody io.Reader = strings.NewReader(tt.body)
			if tt.gzipRequest {
				reqBody = gzipBytes(t, tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, tt.target, reqBody)
			if tt.gzipRequest {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if ce := res.Header.Get("Content-Encoding"); ce != tt.wantEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.wantEncoding)
			}

			var reader io.Reader = res.Body
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("new gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}

			body, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(body) != tt.body {
				t.Fatalf("body: got %q want %q", body, tt.body)
			}
		})
	}
}

func TestGzipMiddleware_BadRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/surat", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()

	GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", w.Code, http.StatusBadRequest)
	}
}
