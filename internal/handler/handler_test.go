package handler

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/sizefit/sizefit/internal/config"
	"github.com/sizefit/sizefit/internal/worker"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := config.Load()
	cfg.UseTurbo = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	pool := worker.NewPool(2)
	pool.Start()
	t.Cleanup(pool.Stop)
	return New(cfg, pool)
}

// testPNG returns an encoded PNG with enough detail that JPEG output
// size responds to fidelity changes.
func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 7 % 256),
				G: uint8(y * 13 % 256),
				B: uint8((x ^ y) % 256),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, url string, payload []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "test.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCompress_FitsTarget(t *testing.T) {
	h := testHandler(t)
	target := int64(20000)
	req := uploadRequest(t, "/compress?target=20000", testPNG(t, 320, 240))
	rec := httptest.NewRecorder()

	h.Compress(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if rec.Header().Get("X-Sizefit-Pass") == "true" && int64(rec.Body.Len()) > target {
		t.Errorf("body %d bytes exceeds target %d", rec.Body.Len(), target)
	}
	fid, err := strconv.ParseFloat(rec.Header().Get("X-Sizefit-Fidelity"), 64)
	if err != nil || fid < 0.1 || fid > 1.0 {
		t.Errorf("X-Sizefit-Fidelity = %q", rec.Header().Get("X-Sizefit-Fidelity"))
	}
	if v := rec.Header().Get("X-Sizefit-Variant"); v == "" {
		t.Error("missing X-Sizefit-Variant header")
	}
	if pass := rec.Header().Get("X-Sizefit-Pass"); pass == "" {
		t.Error("missing X-Sizefit-Pass header")
	}
}

func TestCompress_UnattainableTargetFallsBack(t *testing.T) {
	h := testHandler(t)
	req := uploadRequest(t, "/compress?target=100", testPNG(t, 320, 240))
	rec := httptest.NewRecorder()

	h.Compress(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if pass := rec.Header().Get("X-Sizefit-Pass"); pass != "false" {
		t.Errorf("X-Sizefit-Pass = %q, want false", pass)
	}
	if rec.Body.Len() <= 100 {
		t.Errorf("fallback body is %d bytes, expected an honest encode above target", rec.Body.Len())
	}
}

func TestCompress_NoTarget(t *testing.T) {
	h := testHandler(t)
	req := uploadRequest(t, "/compress?target=none", testPNG(t, 64, 64))
	rec := httptest.NewRecorder()

	h.Compress(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if pass := rec.Header().Get("X-Sizefit-Pass"); pass != "true" {
		t.Errorf("X-Sizefit-Pass = %q, want true", pass)
	}
}

func TestCompress_WebPFormat(t *testing.T) {
	h := testHandler(t)
	req := uploadRequest(t, "/compress?target=none&format=webp", testPNG(t, 64, 64))
	rec := httptest.NewRecorder()

	h.Compress(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/webp" {
		t.Errorf("Content-Type = %q, want image/webp", ct)
	}
}

func TestCompress_BadInputs(t *testing.T) {
	h := testHandler(t)
	payload := testPNG(t, 32, 32)

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"malformed target", "/compress?target=abc", http.StatusBadRequest},
		{"negative target", "/compress?target=-5kb", http.StatusBadRequest},
		{"zero target", "/compress?target=0", http.StatusBadRequest},
		{"bad base_fidelity", "/compress?base_fidelity=high", http.StatusBadRequest},
		{"bad min_fidelity", "/compress?min_fidelity=low", http.StatusBadRequest},
		{"min above base", "/compress?base_fidelity=0.5&min_fidelity=0.9", http.StatusBadRequest},
		{"unknown format", "/compress?format=avif", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Compress(rec, uploadRequest(t, tt.url, payload))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCompress_SizeExpressionTarget(t *testing.T) {
	h := testHandler(t)
	req := uploadRequest(t, "/compress?target=600kb", testPNG(t, 64, 64))
	rec := httptest.NewRecorder()

	h.Compress(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if int64(rec.Body.Len()) > 614400 {
		t.Errorf("body %d bytes exceeds 600kb", rec.Body.Len())
	}
}

func TestCompress_MethodNotAllowed(t *testing.T) {
	h := testHandler(t)
	rec := httptest.NewRecorder()

	h.Compress(rec, httptest.NewRequest(http.MethodGet, "/compress", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestCompress_NoFile(t *testing.T) {
	h := testHandler(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "value")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/compress", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	h.Compress(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCompress_NotMultipart(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/compress", bytes.NewReader([]byte("plain body")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Compress(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCompress_CorruptImage(t *testing.T) {
	h := testHandler(t)
	req := uploadRequest(t, "/compress", []byte("not an image at all"))
	rec := httptest.NewRecorder()

	h.Compress(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnsupportedMediaType)
	}
}

func TestHealth(t *testing.T) {
	h := testHandler(t)
	rec := httptest.NewRecorder()

	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}
