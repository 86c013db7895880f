package oauth2

import (
	"fmt"
	"os"

	"golang.org/x/oauth2/github"

	"github.com/papertrailhq/papertrail"
)

type GithubOAuth2 struct {
	*BaseOAuth2
}

func NewGithubOAuth2(clientId string, clientSecret string, callbackUrl string, onAssertion AssertionHandlerFunc) *GithubOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GITHUB_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GITHUB_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GITHUB_CALLBACK_URL")
	}

	out := GithubOAuth2{
		BaseOAuth2: NewBaseOAuth2(clientId, clientSecret, callbackUrl),
	}
	out.provider = "github"
	out.failureURL = "/auth/github/fail/"
	out.UserInfoURL = "https://api.github.com/user"
	out.OnAssertion = onAssertion
	out.parseAssertion = parseGithubAssertion
	out.oauthConfig.Endpoint = github.Endpoint
	out.oauthConfig.Scopes = []string{"read:user", "user:email"}

	return &out
}

func parseGithubAssertion(userInfo map[string]any) (papertrail.FederatedAssertion, error) {
	// GitHub ids are numbers in JSON, but mocks and some proxies serve them
	// as strings. Accept both.
	var id string
	switch v := userInfo["id"].(type) {
	case string:
		id = v
	case float64:
		id = fmt.Sprintf("%.0f", v)
	}
	email, _ := userInfo["email"].(string)
	name, _ := userInfo["name"].(string)
	if name == "" {
		name, _ = userInfo["login"].(string)
	}
	if id == "" || email == "" {
		return papertrail.FederatedAssertion{}, fmt.Errorf("github profile missing id or email")
	}
	return papertrail.FederatedAssertion{
		ExternalID:  "github:" + id,
		Email:       email,
		DisplayName: name,
	}, nil
}
