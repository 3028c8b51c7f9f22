package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/forgeauth/firesso/firebaseauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yhat/scrape"
	"golang.org/x/net/html"
)

const testProjectID = "test-project"

// testVerifier returns a fixed identity, standing in for the provider's
// verification endpoint.
type testVerifier struct {
	identity *firebaseauth.DecodedIdentity
	err      error
}

func (v *testVerifier) Verify(ctx context.Context, token firebaseauth.IDToken) (*firebaseauth.DecodedIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

func testIdentity() *firebaseauth.DecodedIdentity {
	return &firebaseauth.DecodedIdentity{
		Issuer:   firebaseauth.DefaultIssuer(testProjectID),
		Audience: testProjectID,
		Subject:  "alice",
		UID:      "alice",
		Email:    "alice@example.com",
	}
}

func testSuccessFn(user interface{}, info *firebaseauth.Info, w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<html><body><p id="message">login successful</p><p id="user">%v</p></body></html>`, user)
}

func testFailFn(info *firebaseauth.Info, statusCode int, w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `<html><body><p id="message">%s</p></body></html>`, info.Message)
}

type testErrResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func testErrorFn(e error, w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	var authErr *firebaseauth.AuthorizationError
	if errors.As(e, &authErr) {
		_ = json.NewEncoder(w).Encode(&testErrResponse{Error: authErr.Code, Description: authErr.Description})
		return
	}
	_ = json.NewEncoder(w).Encode(&testErrResponse{Error: "internal-callback-error", Description: e.Error()})
}

// scrapeByID parses an html response body and returns the text of the node
// with the given id.
func scrapeByID(t *testing.T, body string, id string) string {
	t.Helper()
	require := require.New(t)
	root, err := html.Parse(strings.NewReader(body))
	require.NoError(err)
	node, ok := scrape.Find(root, scrape.ById(id))
	require.True(ok, "node %q not found in response body: %s", id, body)
	return scrape.Text(node)
}

func testTokenHandler(t *testing.T, authURL string, callbackURL string, verify firebaseauth.VerifyFunc) (http.HandlerFunc, *firebaseauth.TestSession) {
	t.Helper()
	require := require.New(t)

	cfg, err := firebaseauth.NewConfig(testProjectID, authURL)
	require.NoError(err)

	v := &testVerifier{identity: testIdentity()}
	s, err := firebaseauth.New(cfg, v, verify,
		firebaseauth.WithStateStore(&firebaseauth.SessionStateStore{}),
		firebaseauth.WithCallbackURL(callbackURL),
	)
	require.NoError(err)

	session := firebaseauth.NewTestSession()
	sessionFn := func(*http.Request) firebaseauth.Session { return session }

	handler, err := Token(context.Background(), s, sessionFn, testSuccessFn, testFailFn, testErrorFn)
	require.NoError(err)
	return handler, session
}

func acceptAll(ctx context.Context, token firebaseauth.IDToken, identity *firebaseauth.DecodedIdentity) (interface{}, *firebaseauth.Info, error) {
	return identity.ExternalID(), nil, nil
}

// testInitiate runs the initiation leg through the handler and returns the
// state parameter from the authorization redirect.
func testInitiate(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	require := require.New(t)

	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest("GET", "/login", nil))
	require.Equal(http.StatusFound, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(err)
	state := loc.Query().Get("state")
	require.NotEmpty(state)
	return state
}

func TestToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg, err := firebaseauth.NewConfig(testProjectID, "https://provider.example.com/auth")
	require.NoError(t, err)
	s, err := firebaseauth.New(cfg, &testVerifier{identity: testIdentity()}, acceptAll)
	require.NoError(t, err)

	tests := []struct {
		name    string
		s       *firebaseauth.Strategy
		sFn     SuccessResponseFunc
		fFn     FailResponseFunc
		eFn     ErrorResponseFunc
		wantErr bool
	}{
		{"valid", s, testSuccessFn, testFailFn, testErrorFn, false},
		{"nil-strategy", nil, testSuccessFn, testFailFn, testErrorFn, true},
		{"nil-sFn", s, nil, testFailFn, testErrorFn, true},
		{"nil-fFn", s, testSuccessFn, nil, testErrorFn, true},
		{"nil-eFn", s, testSuccessFn, testFailFn, nil, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := Token(ctx, tt.s, nil, tt.sFn, tt.fFn, tt.eFn)
			if tt.wantErr {
				require.Error(err)
				assert.True(errors.Is(err, firebaseauth.ErrNilParameter))
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func Test_TokenResponses(t *testing.T) {
	t.Parallel()
	authURL := "https://provider.example.com/auth"
	callbackURL := "https://alice.example.com/callback"

	t.Run("initiation-redirect", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		handler, _ := testTokenHandler(t, authURL, callbackURL, acceptAll)

		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest("GET", "/login", nil))
		require.Equal(http.StatusFound, rr.Code)

		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(err)
		assert.Equal("https", loc.Scheme)
		assert.Equal("provider.example.com", loc.Host)
		assert.Equal("token", loc.Query().Get("response_type"))
		assert.Equal(callbackURL, loc.Query().Get("redirect_uri"))
		assert.NotEmpty(loc.Query().Get("state"))
	})
	t.Run("success", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		handler, _ := testTokenHandler(t, authURL, callbackURL, acceptAll)
		state := testInitiate(t, handler)

		form := url.Values{"token": {"valid-token"}, "state": {state}}
		req := httptest.NewRequest("POST", "/callback", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		handler(rr, req)

		require.Equal(http.StatusOK, rr.Code)
		assert.Equal("login successful", scrapeByID(t, rr.Body.String(), "message"))
		assert.Equal("alice", scrapeByID(t, rr.Body.String(), "user"))
	})
	t.Run("state-not-matching", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		handler, _ := testTokenHandler(t, authURL, callbackURL, acceptAll)
		_ = testInitiate(t, handler)

		form := url.Values{"token": {"valid-token"}, "state": {"not-matching"}}
		req := httptest.NewRequest("POST", "/callback", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		handler(rr, req)

		require.Equal(http.StatusForbidden, rr.Code)
		assert.Equal("Invalid authorization request state.", scrapeByID(t, rr.Body.String(), "message"))
	})
	t.Run("soft-rejection", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		reject := func(ctx context.Context, token firebaseauth.IDToken, identity *firebaseauth.DecodedIdentity) (interface{}, *firebaseauth.Info, error) {
			return nil, &firebaseauth.Info{Message: "account suspended"}, nil
		}
		handler, _ := testTokenHandler(t, authURL, callbackURL, reject)
		state := testInitiate(t, handler)

		form := url.Values{"token": {"valid-token"}, "state": {state}}
		req := httptest.NewRequest("POST", "/callback", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		handler(rr, req)

		require.Equal(http.StatusUnauthorized, rr.Code)
		assert.Equal("account suspended", scrapeByID(t, rr.Body.String(), "message"))
	})
	t.Run("access-denied", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		handler, _ := testTokenHandler(t, authURL, callbackURL, acceptAll)

		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest("GET", "/callback?error=access_denied&error_description=user+cancelled", nil))

		require.Equal(http.StatusUnauthorized, rr.Code)
		assert.Equal("user cancelled", scrapeByID(t, rr.Body.String(), "message"))
	})
	t.Run("authorization-error", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		handler, _ := testTokenHandler(t, authURL, callbackURL, acceptAll)

		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest("GET", "/callback?error=server_error&error_description=something+broke", nil))

		require.Equal(http.StatusInternalServerError, rr.Code)
		var errResp testErrResponse
		require.NoError(json.Unmarshal(rr.Body.Bytes(), &errResp))
		assert.Equal("server_error", errResp.Error)
		assert.Equal("something broke", errResp.Description)
	})
	t.Run("verification-error", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		cfg, err := firebaseauth.NewConfig(testProjectID, authURL)
		require.NoError(err)
		v := &testVerifier{err: errors.New("token rejected")}
		s, err := firebaseauth.New(cfg, v, acceptAll)
		require.NoError(err)
		handler, err := Token(context.Background(), s, nil, testSuccessFn, testFailFn, testErrorFn)
		require.NoError(err)

		form := url.Values{"token": {"bad-token"}}
		req := httptest.NewRequest("POST", "/callback", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		handler(rr, req)

		require.Equal(http.StatusInternalServerError, rr.Code)
		var errResp testErrResponse
		require.NoError(json.Unmarshal(rr.Body.Bytes(), &errResp))
		assert.Equal("internal-callback-error", errResp.Error)
		assert.Contains(errResp.Description, "failed to verify identity token")
	})
	t.Run("provider-round-trip", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := firebaseauth.StartTestProvider(t)

		handler, _ := testTokenHandler(t, tp.Addr()+"/auth", callbackURL, acceptAll)

		// initiation leg: the handler redirects the browser to the
		// authorization endpoint
		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest("GET", "/login", nil))
		require.Equal(http.StatusFound, rr.Code)
		authRedirect := rr.Header().Get("Location")
		require.True(strings.HasPrefix(authRedirect, tp.Addr()))

		// the authorization endpoint bounces back to the callback URL
		// preserving the anti-forgery state
		client := tp.HTTPClient()
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
		resp, err := client.Get(authRedirect)
		require.NoError(err)
		defer resp.Body.Close()
		_, err = ioutil.ReadAll(resp.Body)
		require.NoError(err)
		require.Equal(http.StatusFound, resp.StatusCode)
		assert.NotEqual("application/json", resp.Header.Get("Content-Type"),
			"a redirect must not claim a json body")

		post, err := client.Post(authRedirect, "application/x-www-form-urlencoded", nil)
		require.NoError(err)
		defer post.Body.Close()
		assert.Equal(http.StatusMethodNotAllowed, post.StatusCode)

		bounce, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(err)
		wantState, err := url.Parse(authRedirect)
		require.NoError(err)
		assert.Equal(callbackURL, bounce.Scheme+"://"+bounce.Host+bounce.Path)
		assert.Equal(wantState.Query().Get("state"), bounce.Query().Get("state"))
	})
}
