package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/congregate/backend/pkg/apperr"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performJSON(handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestSuccess(t *testing.T) {
	w, body := performJSON(func(c *gin.Context) {
		Success(c, gin.H{"hello": "world"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, expected 200", w.Code)
	}
	if body.Code != "OK" {
		t.Errorf("code = %q, expected OK", body.Code)
	}
}

func TestCreated(t *testing.T) {
	w, body := performJSON(func(c *gin.Context) {
		Created(c, nil)
	})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, expected 201", w.Code)
	}
	if body.Message != "created" {
		t.Errorf("message = %q, expected created", body.Message)
	}
}

func TestError_TaxonomyStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"conflict", apperr.New(apperr.CodeConflict, "dup"), http.StatusConflict},
		{"not found", apperr.New(apperr.CodeNotFound, "missing"), http.StatusNotFound},
		{"validation", apperr.New(apperr.CodeValidation, "bad"), http.StatusBadRequest},
		{"permission denied", apperr.New(apperr.CodePermissionDenied, "no"), http.StatusForbidden},
		{"invalid credentials", apperr.New(apperr.CodeInvalidCredentials, "no"), http.StatusUnauthorized},
		{"user exists", apperr.New(apperr.CodeUserExists, "taken"), http.StatusConflict},
		{"rate limit", apperr.New(apperr.CodeRateLimit, "slow down"), http.StatusTooManyRequests},
		{"unknown", apperr.New(apperr.CodeUnknown, "boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := performJSON(func(c *gin.Context) {
				Error(c, tt.err)
			})
			if w.Code != tt.expected {
				t.Errorf("status = %d, expected %d", w.Code, tt.expected)
			}
		})
	}
}

func TestError_NormalizesRawErrors(t *testing.T) {
	w, body := performJSON(func(c *gin.Context) {
		Error(c, gorm.ErrRecordNotFound)
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", w.Code)
	}
	if body.Code != string(apperr.CodeNotFound) {
		t.Errorf("code = %q, expected %q", body.Code, apperr.CodeNotFound)
	}
}

func TestBadRequest(t *testing.T) {
	w, body := performJSON(func(c *gin.Context) {
		BadRequest(c, "name is required")
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
	if body.Message != "name is required" {
		t.Errorf("message = %q", body.Message)
	}
}
