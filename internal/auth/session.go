package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie carrying the signed browser session.
const SessionName = "resto-session"

const sessionMaxAge = 7 * 24 * time.Hour

// NewSessionStore returns a cookie store signed with key.
func NewSessionStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.MaxAge = int(sessionMaxAge.Seconds())
	return store
}

// SaveSession writes the identity of claims into the session cookie.
func SaveSession(store sessions.Store, w http.ResponseWriter, r *http.Request, claims *Claims) error {
	session, _ := store.Get(r, SessionName)
	session.Values["user_id"] = claims.UserID.String()
	session.Values["role"] = claims.Role
	session.Values["permissions"] = strings.Join(claims.Permissions, ",")
	return session.Save(r, w)
}

// SessionClaims reads the identity stored by SaveSession. It returns false
// when the request has no valid session.
func SessionClaims(store sessions.Store, r *http.Request) (*Claims, bool) {
	session, err := store.Get(r, SessionName)
	if err != nil || session.IsNew {
		return nil, false
	}
	rawID, _ := session.Values["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, false
	}
	role, _ := session.Values["role"].(string)
	if role == "" {
		return nil, false
	}
	claims := &Claims{UserID: userID, Role: role}
	if perms, _ := session.Values["permissions"].(string); perms != "" {
		claims.Permissions = strings.Split(perms, ",")
	}
	return claims, true
}

// ClearSession expires the session cookie.
func ClearSession(store sessions.Store, w http.ResponseWriter, r *http.Request) error {
	session, _ := store.Get(r, SessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
