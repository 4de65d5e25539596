package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-order/api/internal/auth"
	"github.com/resto-order/api/internal/enum"
)

const testJWTSecret = "test-secret-for-handlers"

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if claims != nil {
		// Generate a real JWT token from claims
		token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.Role, claims.Permissions)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

func testNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

// claimsFor builds claims carrying the permissions the role is seeded with.
func claimsFor(role string) *auth.Claims {
	c := &auth.Claims{UserID: uuid.New(), Role: role}
	switch role {
	case enum.UserRoleManager:
		c.Permissions = []string{enum.PermissionAddOrder, enum.PermissionAddPOS, enum.PermissionUpdateOrder, enum.PermissionViewOrder}
	case enum.UserRoleRider:
		c.Permissions = []string{enum.PermissionUpdateOrder, enum.PermissionViewOrder}
	case enum.UserRoleCustomer:
		c.Permissions = []string{enum.PermissionAddOrder}
	}
	return c
}
