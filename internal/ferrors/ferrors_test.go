package ferrors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestFromHTTPResponse429ParsesIntegerRetryAfter(t *testing.T) {
	err := FromHTTPResponse(429, "", "42")
	if err.Kind != KindApiRateLimitExceeded {
		t.Fatalf("Kind = %v, want ApiRateLimitExceeded", err.Kind)
	}
	if err.RetryAfterSeconds() != 42 {
		t.Errorf("RetryAfterSeconds = %d, want 42", err.RetryAfterSeconds())
	}
}

func TestFromHTTPResponse429ParsesHTTPDate(t *testing.T) {
	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	err := FromHTTPResponse(429, "", future)
	got := err.RetryAfterSeconds()
	if got < 85 || got > 95 {
		t.Errorf("RetryAfterSeconds = %d, want ~90", got)
	}
}

func TestFromHTTPResponse429FallsBackToSixty(t *testing.T) {
	err := FromHTTPResponse(429, "", "")
	if err.RetryAfterSeconds() != 60 {
		t.Errorf("RetryAfterSeconds = %d, want 60 fallback", err.RetryAfterSeconds())
	}
}

func TestParseRetryAfter(t *testing.T) {
	if secs, ok := ParseRetryAfter("30"); !ok || secs != 30 {
		t.Errorf("ParseRetryAfter(\"30\") = (%d, %v), want (30, true)", secs, ok)
	}
	if _, ok := ParseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"); ok {
		t.Error("a past HTTP-date should report no usable wait")
	}
	future := time.Now().Add(120 * time.Second).UTC().Format(http.TimeFormat)
	if secs, ok := ParseRetryAfter(future); !ok || secs < 118 || secs > 122 {
		t.Errorf("ParseRetryAfter(future+120s) = (%d, %v), want (~120, true)", secs, ok)
	}
	if _, ok := ParseRetryAfter("soonish"); ok {
		t.Error("malformed input should report no usable wait")
	}
	if _, ok := ParseRetryAfter(""); ok {
		t.Error("empty input should report no usable wait")
	}
}

func TestFromHTTPResponse408IsTimeout(t *testing.T) {
	err := FromHTTPResponse(408, "", "")
	if err.Kind != KindTimeout || err.RetryAfterSeconds() != 30 {
		t.Errorf("err = %+v, want Timeout/30s", err)
	}
}

func TestFromHTTPResponse5xxIsTransient(t *testing.T) {
	for _, status := range []int{500, 502, 503, 504} {
		err := FromHTTPResponse(status, "", "")
		if err.Kind != KindApiTransientError {
			t.Errorf("status %d Kind = %v, want ApiTransientError", status, err.Kind)
		}
		if !err.Retryable() {
			t.Errorf("status %d should be retryable", status)
		}
	}
}

func TestFromHTTPResponse401And403AreAuthErrorsNotRetryable(t *testing.T) {
	for _, status := range []int{401, 403} {
		err := FromHTTPResponse(status, "", "")
		if err.Kind != KindApiError {
			t.Errorf("status %d Kind = %v, want ApiError", status, err.Kind)
		}
		if err.Retryable() {
			t.Errorf("status %d should not be retryable", status)
		}
	}
}

func TestFromHTTPResponseDefaultIncludesStatusAndBody(t *testing.T) {
	err := FromHTTPResponse(418, "teapot", "")
	if err.Kind != KindApiError {
		t.Errorf("Kind = %v, want ApiError", err.Kind)
	}
	if !strings.Contains(err.Message, "418") || !strings.Contains(err.Message, "teapot") {
		t.Errorf("Message = %q, want it to include status 418 and body", err.Message)
	}
}

func TestAsExtractsCodedError(t *testing.T) {
	wrapped := fmtWrap(Wrap(KindIO, "/tmp/data", "read failed", errors.New("disk full")))
	coded, ok := As(wrapped)
	if !ok {
		t.Fatal("expected As to extract a coded error through wrapping")
	}
	if coded.Kind != KindIO {
		t.Errorf("Kind = %v, want io", coded.Kind)
	}
}

func fmtWrap(err error) error {
	return errors.Join(err)
}

func TestKindOfReturnsEmptyForPlainError(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Error("expected empty Kind for a non-coded error")
	}
}
