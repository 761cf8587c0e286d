package http

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestUser(t *testing.T) {
	t.Run("header present", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/accounts", nil)
		r.Header.Set(userHeader, "user-1")

		userID, err := requestUser(r)
		if err != nil {
			t.Fatalf("requestUser() error = %v", err)
		}
		if userID != "user-1" {
			t.Errorf("userID = %v, want user-1", userID)
		}
	})

	t.Run("header missing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/accounts", nil)

		if _, err := requestUser(r); err == nil {
			t.Error("requestUser() should fail without the identity header")
		}
	})
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"amountCents": 100}`, false},
		{"unknown field", `{"amountCents": 100, "bogus": true}`, true},
		{"malformed", `{"amountCents": `, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("PUT", "/budgets/1", strings.NewReader(tt.body))

			var req budgetRequest
			err := decodeBody(r, &req)
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeBody() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{"valid id", "42", 42, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"not a number", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/accounts/x", nil)
			r.SetPathValue("id", tt.value)

			got, err := pathID(r, "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("pathID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("pathID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryInt64(t *testing.T) {
	t.Run("absent returns nil", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/stats", nil)

		v, err := queryInt64(r, "accountId")
		if err != nil {
			t.Fatalf("queryInt64() error = %v", err)
		}
		if v != nil {
			t.Errorf("queryInt64() = %v, want nil", *v)
		}
	})

	t.Run("present", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/stats?accountId=7", nil)

		v, err := queryInt64(r, "accountId")
		if err != nil {
			t.Fatalf("queryInt64() error = %v", err)
		}
		if v == nil || *v != 7 {
			t.Errorf("queryInt64() = %v, want 7", v)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/stats?accountId=seven", nil)

		if _, err := queryInt64(r, "accountId"); err == nil {
			t.Error("queryInt64() should reject non-numeric values")
		}
	})
}
