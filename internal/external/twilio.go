package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
)

// TwilioClient sends SMS through the Twilio Messages REST API.
type TwilioClient struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string

	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewTwilioClient creates a TwilioClient. All three credentials are
// required; callers degrade to simulated sends when any is missing.
func NewTwilioClient(client *http.Client, accountSID, authToken, from string) *TwilioClient {
	return &TwilioClient{
		baseURL:    "https://api.twilio.com/2010-04-01",
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpCfg:    DefaultHTTPConfig(client),
		circuit:    newCircuit("twilio"),
	}
}

// Send delivers one SMS and returns the Twilio message SID.
func (c *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	buildRequest := func() (*http.Request, error) {
		form := url.Values{}
		form.Set("To", to)
		form.Set("From", c.from)
		form.Set("Body", body)

		endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
		req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(c.accountSID, c.authToken)
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding twilio response: %w", err)
	}
	return payload.SID, nil
}
