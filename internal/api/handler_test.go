package api

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestIDFromPath(t *testing.T) {
	testCases := []struct {
		name    string
		path    string
		index   int
		want    int64
		wantErr bool
	}{
		{"resource id", "/api/v1/books/42", 4, 42, false},
		{"nested resource id", "/api/v1/recommendations/category/7", 5, 7, false},
		{"trailing segment", "/api/v1/loans/5/return", 4, 5, false},
		{"not a number", "/api/v1/books/abc", 4, 0, true},
		{"zero id", "/api/v1/books/0", 4, 0, true},
		{"negative id", "/api/v1/books/-1", 4, 0, true},
		{"missing segment", "/api/v1/books", 4, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)

			id, err := idFromPath(req, tc.index)
			if tc.wantErr {
				if !errors.Is(err, errInvalidID) {
					t.Errorf("Expected errInvalidID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if id != tc.want {
				t.Errorf("Expected id %d, got %d", tc.want, id)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/books?page=3&bad=abc", nil)

	if got := queryInt(req, "page", 1); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}
	if got := queryInt(req, "missing", 20); got != 20 {
		t.Errorf("Expected fallback 20, got %d", got)
	}
	// 非法值退回默认值
	if got := queryInt(req, "bad", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %d", got)
	}
}

func TestQueryInt64Ptr(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/loans?user_id=42", nil)

	got := queryInt64Ptr(req, "user_id")
	if got == nil || *got != 42 {
		t.Errorf("Expected pointer to 42, got %v", got)
	}
	if queryInt64Ptr(req, "book_id") != nil {
		t.Error("Expected nil for missing parameter")
	}
}

func TestQueryStringPtr(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/books?title=Dune", nil)

	got := queryStringPtr(req, "title")
	if got == nil || *got != "Dune" {
		t.Errorf("Expected pointer to Dune, got %v", got)
	}
	if queryStringPtr(req, "author") != nil {
		t.Error("Expected nil for missing parameter")
	}
}
