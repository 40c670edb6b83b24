package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/middleware"
	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/repository"
	"github.com/kelurahan-digital/sisurat/internal/service"
	"github.com/kelurahan-digital/sisurat/internal/workflow"
)

// stubService menimpa metode yang dipakai tes; metode lain panik karena
// interface tertanamnya nil.
type stubService struct {
	Service

	calls int

	authUser *model.User
	authErr  error

	verifyResp *model.Surat
	verifyErr  error
	verifyIn   service.VerifyInput

	submitResp *model.Surat
	submitErr  error

	pdfErr error

	reportFilter service.ReportFilter
	reportResp   []model.Surat

	importBody []byte
	importResp *service.ImportResult
}

func (s *stubService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	s.calls++
	return s.authUser, s.authErr
}

func (s *stubService) VerifySurat(ctx context.Context, actor model.Actor, id int64, in service.VerifyInput) (*model.Surat, error) {
	s.calls++
	s.verifyIn = in
	return s.verifyResp, s.verifyErr
}

func (s *stubService) SubmitSurat(ctx context.Context, actor model.Actor, in service.SubmitInput) (*model.Surat, error) {
	s.calls++
	return s.submitResp, s.submitErr
}

func (s *stubService) WriteSuratPDF(ctx context.Context, actor model.Actor, id int64, w io.Writer) error {
	s.calls++
	if s.pdfErr != nil {
		return s.pdfErr
	}
	_, err := w.Write([]byte("%PDF-1.3 test"))
	return err
}

func (s *stubService) ReportSurat(ctx context.Context, actor model.Actor, f service.ReportFilter) ([]model.Surat, error) {
	s.calls++
	s.reportFilter = f
	return s.reportResp, nil
}

func (s *stubService) ImportKartuKeluarga(ctx context.Context, r io.Reader) (*service.ImportResult, error) {
	s.calls++
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.importBody = b
	return s.importResp, nil
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuth("test-secret", time.Hour, false)

	return NewHandler(svc, logger, auth)
}

func bearer(t *testing.T, h *Handler, role model.Role) string {
	t.Helper()
	token, _, err := h.auth.IssueToken(model.Actor{UserID: 7, Username: "u", Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func do(h *Handler, method, target, auth string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func TestLogin_Success(t *testing.T) {
	svc := &stubService{authUser: &model.User{ID: 3, Username: "pak.rt", Role: model.RoleRT}}
	h := newTestHandler(t, svc)

	rec := do(h, http.MethodPost, "/api/auth/login", "", strings.NewReader(`{"username":"pak.rt","password":"rahasia123"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" || resp.HomePath != "/rt/dashboard" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	claims, err := h.auth.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Role != model.RoleRT || claims.Subject != "3" {
		t.Fatalf("claims = %+v", claims)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AuthCookieName && c.Value == resp.Token && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatalf("auth cookie not set")
	}
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"empty password", `{"username":"a","password":""}`, nil, http.StatusBadRequest},
		{"wrong password", `{"username":"a","password":"b"}`, service.ErrInvalidCredentials, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{authErr: tt.err})
			rec := do(h, http.MethodPost, "/api/auth/login", "", strings.NewReader(tt.body))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestVerify_RoleGuard(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	body := `{"status":"VERIFIED_BY_STAFF"}`

	rec := do(h, http.MethodPatch, "/api/staff/surat/1/verify", "", strings.NewReader(body))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = do(h, http.MethodPatch, "/api/staff/surat/1/verify", bearer(t, h, model.RoleWarga), strings.NewReader(body))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("warga: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = do(h, http.MethodPatch, "/api/staff/surat/1/verify", bearer(t, h, model.RoleRT), strings.NewReader(body))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("rt on staff route: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	if svc.calls != 0 {
		t.Fatalf("service called %d times, want 0", svc.calls)
	}
}

func TestVerify_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid target", fmt.Errorf("%w: STAFF cannot set ISSUED", workflow.ErrInvalidTarget), http.StatusBadRequest},
		{"after rejection", fmt.Errorf("%w: REJECTED_BY_RT", workflow.ErrInvalidTransition), http.StatusConflict},
		{"lost race", repository.ErrStatusConflict, http.StatusConflict},
		{"unknown id", repository.ErrNotFound, http.StatusNotFound},
		{"missing note", &service.ValidationError{Field: "catatanPenolakan", Message: "wajib diisi"}, http.StatusBadRequest},
		{"database down", errors.New("dial tcp 10.0.0.1:5432: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{verifyErr: tt.err})
			rec := do(h, http.MethodPatch, "/api/staff/surat/5/verify", bearer(t, h, model.RoleStaff),
				strings.NewReader(`{"status":"VERIFIED_BY_STAFF"}`))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if strings.Contains(rec.Body.String(), "10.0.0.1") {
				t.Fatalf("internal error leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestVerify_Success(t *testing.T) {
	no := "123/2025"
	svc := &stubService{verifyResp: &model.Surat{ID: 5, NoSurat: &no, Status: model.StatusVerifiedByStaff}}
	h := newTestHandler(t, svc)

	rec := do(h, http.MethodPatch, "/api/staff/surat/5/verify", bearer(t, h, model.RoleStaff),
		strings.NewReader(`{"status":"VERIFIED_BY_STAFF","noSurat":"123/2025"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.verifyIn.NoSurat == nil || *svc.verifyIn.NoSurat != no {
		t.Fatalf("noSurat not passed to service: %+v", svc.verifyIn)
	}

	var resp suratResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != model.StatusVerifiedByStaff || resp.NoSurat == nil || *resp.NoSurat != no {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestVerify_MissingStatus(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := do(h, http.MethodPatch, "/api/rt/surat/5/verify", bearer(t, h, model.RoleRT), strings.NewReader(`{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestSubmitSurat_Created(t *testing.T) {
	svc := &stubService{submitResp: &model.Surat{ID: 9, Status: model.StatusSubmitted}}
	h := newTestHandler(t, svc)

	rec := do(h, http.MethodPost, "/api/surat", bearer(t, h, model.RoleWarga),
		strings.NewReader(`{"idJenisSurat":1,"keperluan":"melamar kerja"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	rec = do(h, http.MethodPost, "/api/surat", bearer(t, h, model.RoleStaff), strings.NewReader(`{}`))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff submit: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestSuratPDF(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	rec := do(h, http.MethodGet, "/api/surat/4/pdf", bearer(t, h, model.RoleWarga), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content-type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a pdf")
	}

	h = newTestHandler(t, &stubService{pdfErr: service.ErrNotIssued})
	rec = do(h, http.MethodGet, "/api/surat/4/pdf", bearer(t, h, model.RoleWarga), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("not issued: status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestReportSurat_Filter(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := do(h, http.MethodGet, "/api/laporan/surat?from=2025-03-01&to=2025-03-31&status=ISSUED,rejected_by_rt",
		bearer(t, h, model.RoleLurah), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("body = %q, want empty list", rec.Body.String())
	}

	f := svc.reportFilter
	if f.From == nil || f.From.Format(dateLayout) != "2025-03-01" {
		t.Fatalf("from = %v", f.From)
	}
	if f.To == nil || f.To.Format(dateLayout) != "2025-04-01" {
		t.Fatalf("to should be exclusive next day, got %v", f.To)
	}
	if len(f.Statuses) != 2 || f.Statuses[1] != model.StatusRejectedByRT {
		t.Fatalf("statuses = %v", f.Statuses)
	}

	rec = do(h, http.MethodGet, "/api/laporan/surat?from=01-03-2025", bearer(t, h, model.RoleLurah), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = do(h, http.MethodGet, "/api/laporan/surat", bearer(t, h, model.RoleRT), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("rt: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestImportKartuKeluarga_Multipart(t *testing.T) {
	svc := &stubService{importResp: &service.ImportResult{Total: 2, Inserted: 1}}
	h := newTestHandler(t, svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "kk.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("xlsx-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/kartu-keluarga/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, h, model.RoleSuperadmin))
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if string(svc.importBody) != "xlsx-bytes" {
		t.Fatalf("service got %q", svc.importBody)
	}

	var res service.ImportResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Inserted != 1 || res.Total != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestInvalidPathID(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := do(h, http.MethodPatch, "/api/rt/surat/abc/verify", bearer(t, h, model.RoleRT),
		strings.NewReader(`{"status":"VERIFIED_BY_RT"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called")
	}
}
