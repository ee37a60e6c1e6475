package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	appErrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Success(ctx, http.StatusCreated, gin.H{"message": "ok"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}

	resp := decode(t, rec)
	if !resp.Success {
		t.Fatal("expected success flag to be true")
	}
	if resp.Error != nil {
		t.Fatal("expected no error information")
	}
}

func TestSuccessWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	SuccessWithMeta(ctx, http.StatusOK, []string{"a", "b"}, &Meta{Total: 2})

	resp := decode(t, rec)
	if resp.Meta == nil || resp.Meta.Total != 2 {
		t.Fatal("expected metadata to be serialised")
	}
}

func TestErrorWithWrappedTokenError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, fmt.Errorf("invitation service: accept: %w", appErrors.ErrTokenExpired))

	if rec.Code != http.StatusGone {
		t.Fatalf("expected status %d got %d", http.StatusGone, rec.Code)
	}

	resp := decode(t, rec)
	if resp.Success {
		t.Fatal("expected success to be false")
	}
	if resp.Error == nil || resp.Error.Code != appErrors.ErrTokenExpired.Code {
		t.Fatal("expected token expired code in response")
	}
	if resp.Error.Kind != string(appErrors.KindToken) {
		t.Fatalf("expected token kind, got %q", resp.Error.Kind)
	}
}

func TestErrorWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	ErrorWithDetails(ctx, appErrors.NewValidation("invalid payload"), []string{"email"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Details == nil {
		t.Fatal("expected details to be serialised")
	}
}

func TestErrorWithGenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Error.Message != appErrors.ErrInternalServer.Message {
		t.Fatalf("expected raw error to be hidden, got %q", resp.Error.Message)
	}
}
