package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// CodePrompt asks the operator to visit authURL and type back the
// authorization code. Used only when no stored token is usable.
type CodePrompt func(ctx context.Context, authURL string) (string, error)

// OAuthClient returns an HTTP client authorized for Drive via the
// installed-app flow. A stored token is reused and refreshed in place;
// without one the manual authorization-code exchange runs through prompt,
// and the resulting token is written to tokenPath for the next run.
func OAuthClient(ctx context.Context, credentialsPath, tokenPath string, prompt CodePrompt) (*http.Client, error) {
	secrets, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	conf, err := google.ConfigFromJSON(secrets, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}

	tok, err := tokenFromFile(tokenPath)
	if err == nil {
		source := conf.TokenSource(ctx, tok)
		fresh, err := source.Token()
		if err == nil {
			if fresh.AccessToken != tok.AccessToken {
				if err := saveToken(tokenPath, fresh); err != nil {
					return nil, err
				}
			}
			return oauth2.NewClient(ctx, source), nil
		}
		// Stored token unusable (revoked, scope change): fall through to
		// the manual flow.
	}

	if prompt == nil {
		return nil, fmt.Errorf("no usable token at %s and no operator prompt available", tokenPath)
	}

	authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	code, err := prompt(ctx, authURL)
	if err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	tok, err = conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := saveToken(tokenPath, tok); err != nil {
		return nil, err
	}

	return conf.Client(ctx, tok), nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token %q: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("save token %q: %w", path, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("encode token %q: %w", path, err)
	}
	return nil
}
