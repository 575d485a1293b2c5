package twilio

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"numrent/internal/provider"
)

const apiVersion = "2010-04-01"

// Client talks to the Twilio REST API and implements provider.Verifier
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Twilio API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a structured error response from the Twilio API
type APIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	MoreInfo string `json:"more_info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: %s (code %d, status %d)", e.Message, e.Code, e.Status)
}

// Verify checks the credential pair by fetching the account resource.
// On success it returns a live Account bound to those credentials.
func (c *Client) Verify(accountSID, authToken string) (provider.Account, error) {
	acc := &account{client: c, sid: accountSID, token: authToken}

	var resp struct {
		Sid    string `json:"sid"`
		Status string `json:"status"`
	}
	path := fmt.Sprintf("/%s/Accounts/%s.json", apiVersion, accountSID)
	if err := acc.get(path, nil, &resp); err != nil {
		return nil, fmt.Errorf("credential verification failed: %w", err)
	}

	return acc, nil
}

// account implements provider.Account for one credential pair
type account struct {
	client *Client
	sid    string
	token  string
}

// SearchAvailable lists purchasable local numbers in a country
func (a *account) SearchAvailable(country, areaCode string, limit int) ([]provider.CandidateNumber, error) {
	params := url.Values{}
	params.Set("PageSize", strconv.Itoa(limit))
	if areaCode != "" {
		params.Set("AreaCode", areaCode)
	}

	var resp struct {
		AvailablePhoneNumbers []struct {
			PhoneNumber  string `json:"phone_number"`
			FriendlyName string `json:"friendly_name"`
			Locality     string `json:"locality"`
			Region       string `json:"region"`
		} `json:"available_phone_numbers"`
	}
	path := fmt.Sprintf("/%s/Accounts/%s/AvailablePhoneNumbers/%s/Local.json", apiVersion, a.sid, country)
	if err := a.get(path, params, &resp); err != nil {
		return nil, err
	}

	numbers := make([]provider.CandidateNumber, 0, len(resp.AvailablePhoneNumbers))
	for _, n := range resp.AvailablePhoneNumbers {
		numbers = append(numbers, provider.CandidateNumber{
			PhoneNumber:  n.PhoneNumber,
			FriendlyName: n.FriendlyName,
			Locality:     n.Locality,
			Region:       n.Region,
		})
	}
	return numbers, nil
}

// Purchase rents a number and returns the provider's canonical form of it
func (a *account) Purchase(number string) (string, error) {
	form := url.Values{}
	form.Set("PhoneNumber", number)

	var resp struct {
		Sid         string `json:"sid"`
		PhoneNumber string `json:"phone_number"`
	}
	path := fmt.Sprintf("/%s/Accounts/%s/IncomingPhoneNumbers.json", apiVersion, a.sid)
	if err := a.postForm(path, form, &resp); err != nil {
		return "", err
	}

	return resp.PhoneNumber, nil
}

// RecentMessages lists the latest messages addressed to a rented number
func (a *account) RecentMessages(number string, limit int) ([]provider.Message, error) {
	params := url.Values{}
	params.Set("To", number)
	params.Set("PageSize", strconv.Itoa(limit))

	var resp struct {
		Messages []struct {
			From     string `json:"from"`
			To       string `json:"to"`
			Body     string `json:"body"`
			DateSent string `json:"date_sent"`
		} `json:"messages"`
	}
	path := fmt.Sprintf("/%s/Accounts/%s/Messages.json", apiVersion, a.sid)
	if err := a.get(path, params, &resp); err != nil {
		return nil, err
	}

	messages := make([]provider.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, provider.Message{
			From: m.From,
			To:   m.To,
			Body: m.Body,
			Sent: parseRFC2822(m.DateSent),
		})
	}
	return messages, nil
}

// Release looks the number up by value to obtain the provider's own
// identifier for it, then deletes that resource. The lookup never trusts
// a locally remembered identifier.
func (a *account) Release(number string) error {
	params := url.Values{}
	params.Set("PhoneNumber", number)
	params.Set("PageSize", "1")

	var resp struct {
		IncomingPhoneNumbers []struct {
			Sid string `json:"sid"`
		} `json:"incoming_phone_numbers"`
	}
	listPath := fmt.Sprintf("/%s/Accounts/%s/IncomingPhoneNumbers.json", apiVersion, a.sid)
	if err := a.get(listPath, params, &resp); err != nil {
		return err
	}

	if len(resp.IncomingPhoneNumbers) == 0 {
		return provider.ErrNumberNotFound
	}

	deletePath := fmt.Sprintf("/%s/Accounts/%s/IncomingPhoneNumbers/%s.json", apiVersion, a.sid, resp.IncomingPhoneNumbers[0].Sid)
	return a.delete(deletePath)
}

func (a *account) get(path string, params url.Values, out interface{}) error {
	u := a.client.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *account) postForm(path string, form url.Values, out interface{}) error {
	req, err := http.NewRequest(http.MethodPost, a.client.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, out)
}

func (a *account) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, a.client.baseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, nil)
}

func (a *account) do(req *http.Request, out interface{}) error {
	req.SetBasicAuth(a.sid, a.token)

	resp, err := a.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Status == 0 {
			apiErr.Status = statusCode
		}
		return apiErr
	}
	return fmt.Errorf("twilio: unexpected status %d", statusCode)
}

// parseRFC2822 parses Twilio's date format; zero time on failure
func parseRFC2822(s string) time.Time {
	t, err := time.Parse(time.RFC1123Z, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
