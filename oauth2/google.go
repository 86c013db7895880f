package oauth2

import (
	"fmt"
	"os"

	"golang.org/x/oauth2/google"

	"github.com/papertrailhq/papertrail"
)

type GoogleOAuth2 struct {
	*BaseOAuth2
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, onAssertion AssertionHandlerFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	out := GoogleOAuth2{
		BaseOAuth2: NewBaseOAuth2(clientId, clientSecret, callbackUrl),
	}
	out.provider = "google"
	out.failureURL = "/auth/google/fail/"
	out.UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	out.OnAssertion = onAssertion
	out.parseAssertion = parseGoogleAssertion
	out.oauthConfig.Endpoint = google.Endpoint
	out.oauthConfig.Scopes = []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}

	return &out
}

func parseGoogleAssertion(userInfo map[string]any) (papertrail.FederatedAssertion, error) {
	id, _ := userInfo["id"].(string)
	email, _ := userInfo["email"].(string)
	name, _ := userInfo["name"].(string)
	if id == "" || email == "" {
		return papertrail.FederatedAssertion{}, fmt.Errorf("google profile missing id or email")
	}
	return papertrail.FederatedAssertion{
		// Provider-prefixed so subject ids can never collide across providers
		ExternalID:  "google:" + id,
		Email:       email,
		DisplayName: name,
	}, nil
}
