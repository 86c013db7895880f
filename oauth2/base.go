// Package oauth2 provides the federated sign-in providers. Each provider
// runs the authorization-code dance against its upstream and reduces the
// returned profile to a papertrail.FederatedAssertion, which it hands to the
// configured AssertionHandlerFunc. The package never touches stores or
// sessions itself.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"github.com/papertrailhq/papertrail"
)

// AssertionHandlerFunc consumes a verified provider assertion. It is expected
// to resolve the assertion to an account and finish the response (redirect,
// session, etc). papertrail.AuthHandler.HandleAssertion satisfies it.
type AssertionHandlerFunc func(assertion papertrail.FederatedAssertion, w http.ResponseWriter, r *http.Request)

// parseAssertionFunc turns a provider's userinfo payload into an assertion.
type parseAssertionFunc func(userInfo map[string]any) (papertrail.FederatedAssertion, error)

// BaseOAuth2 carries the provider-independent half of the flow: the state
// cookie, the code exchange and the userinfo fetch. Providers embed it and
// supply their endpoint, scopes and userinfo parsing.
type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// UserInfoURL is where the provider's profile is fetched from. Tests
	// point it at a mock server.
	UserInfoURL string

	// HTTPClient overrides the client used for token exchange and the
	// userinfo fetch. nil means http.DefaultClient.
	HTTPClient *http.Client

	OnAssertion AssertionHandlerFunc

	provider       string
	failureURL     string
	parseAssertion parseAssertionFunc
	oauthConfig    oauth2.Config
	mux            *http.ServeMux
}

func NewBaseOAuth2(clientId string, clientSecret string, callbackUrl string) *BaseOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_CALLBACK_URL")
	}
	out := &BaseOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		mux:          http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return out
}

// Handler returns the provider's route tree. Mount it under the provider's
// path prefix, e.g. /auth/google/.
func (b *BaseOAuth2) Handler() http.Handler {
	return b.mux
}

// SetHTTPClient overrides the HTTP client used against the provider.
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.HTTPClient = client
}

// SetOAuthEndpoint overrides the provider's auth/token endpoints.
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

func (b *BaseOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		log.Println("oauth state is nil")
		http.Error(w, "OauthState is nil", http.StatusBadRequest)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			MaxAge: 0,
		})
		http.Error(w, fmt.Sprintf("invalid oauth %s state: %s, CookieOauthState: %s", b.provider, r.FormValue("state"), oauthState.Value), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if b.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}

	code := r.FormValue("code")
	token, err := b.oauthConfig.Exchange(ctx, code)
	if err != nil {
		log.Println("code exchange wrong: ", err)
		b.redirectFailure(w, r)
		return
	}

	userInfo, err := b.fetchUserInfo(token)
	if err != nil {
		log.Println("error fetching user info: ", err)
		b.redirectFailure(w, r)
		return
	}

	assertion, err := b.parseAssertion(userInfo)
	if err != nil {
		log.Println("error parsing provider profile: ", err)
		b.redirectFailure(w, r)
		return
	}

	b.OnAssertion(assertion, w, r)
}

func (b *BaseOAuth2) fetchUserInfo(token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, b.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	client := b.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %s", err.Error())
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", response.StatusCode)
	}
	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %s", err.Error())
	}

	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, err
	}
	return userInfo, nil
}

func (b *BaseOAuth2) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, b.failureURL, http.StatusTemporaryRedirect)
}
