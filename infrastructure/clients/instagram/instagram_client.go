package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/domain/repository"
	"ig-oauth-service/infrastructure/logger"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const (
	// DefaultGraphURL is the Facebook Graph API base used in production.
	DefaultGraphURL = "https://graph.facebook.com/v18.0"

	// defaultTokenLifetime applies when the provider omits expires_in (60 days).
	defaultTokenLifetime = 5184000 * time.Second
)

// Config carries Facebook app credentials.
type Config struct {
	AppID       string
	AppSecret   string
	RedirectURI string
	// GraphURL overrides the Graph API base (tests point it at a local server).
	GraphURL string
	// HTTPClient overrides the transport; nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// Client talks to the Facebook Graph API for OAuth exchange, token refresh
// and Instagram content publishing.
type Client struct {
	appID       string
	appSecret   string
	redirectURI string
	graphURL    string
	httpClient  *http.Client
	oauthConfig *oauth2.Config
}

var _ repository.IInstagram = (*Client)(nil)

func NewClient(cfg *Config) *Client {
	graphURL := cfg.GraphURL
	if graphURL == "" {
		graphURL = DefaultGraphURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		appID:       cfg.AppID,
		appSecret:   cfg.AppSecret,
		redirectURI: cfg.RedirectURI,
		graphURL:    strings.TrimRight(graphURL, "/"),
		httpClient:  httpClient,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes: []string{
				"pages_show_list",
				"pages_read_engagement",
				"instagram_basic",
				"instagram_content_publish",
				"pages_manage_metadata",
				"business_management",
			},
			Endpoint: facebook.Endpoint,
		},
	}
}

// AuthCodeURL builds the consent URL the user is redirected to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauthConfig.AuthCodeURL(state)
}

// graphError is the provider's error envelope.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// do executes a Graph request and decodes the JSON body into out. Non-200
// responses are returned as errors carrying the provider's message.
func (c *Client) do(ctx context.Context, method, path string, params interface{}, out interface{}) error {
	v, err := query.Values(params)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/%s?%s", c.graphURL, strings.TrimLeft(path, "/"), v.Encode())
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			return fmt.Errorf("graph api %s %s: %s (code %d)", method, path, ge.Error.Message, ge.Error.Code)
		}
		return fmt.Errorf("graph api %s %s: status %d: %s", method, path, resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("graph api %s %s: decoding response: %w", method, path, err)
		}
	}
	return nil
}

type tokenParams struct {
	ClientID        string `url:"client_id"`
	ClientSecret    string `url:"client_secret"`
	RedirectURI     string `url:"redirect_uri,omitempty"`
	Code            string `url:"code,omitempty"`
	GrantType       string `url:"grant_type,omitempty"`
	FBExchangeToken string `url:"fb_exchange_token,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeCode trades an authorization code for a short-lived user token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	var res tokenResponse
	err := c.do(ctx, http.MethodGet, "oauth/access_token", tokenParams{
		ClientID:     c.appID,
		ClientSecret: c.appSecret,
		RedirectURI:  c.redirectURI,
		Code:         code,
	}, &res)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return res.AccessToken, nil
}

// ExchangeLongLivedToken trades a token for a long-lived one. The same call
// serves the initial exchange and the scheduled refresh.
func (c *Client) ExchangeLongLivedToken(ctx context.Context, token string) (*model.LongLivedToken, error) {
	var res tokenResponse
	err := c.do(ctx, http.MethodGet, "oauth/access_token", tokenParams{
		ClientID:        c.appID,
		ClientSecret:    c.appSecret,
		GrantType:       "fb_exchange_token",
		FBExchangeToken: token,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	lifetime := time.Duration(res.ExpiresIn) * time.Second
	if res.ExpiresIn == 0 {
		lifetime = defaultTokenLifetime
	}
	return &model.LongLivedToken{
		AccessToken: res.AccessToken,
		ExpiresAt:   time.Now().Add(lifetime).UTC(),
	}, nil
}

type fieldsParams struct {
	Fields      string `url:"fields,omitempty"`
	AccessToken string `url:"access_token"`
}

func (c *Client) GetFacebookUserID(ctx context.Context, accessToken string) (string, error) {
	var res struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := c.do(ctx, http.MethodGet, "me", fieldsParams{Fields: "id,name,email", AccessToken: accessToken}, &res)
	if err != nil {
		return "", fmt.Errorf("failed to get Facebook user ID: %w", err)
	}
	return res.ID, nil
}

func (c *Client) GetUserPages(ctx context.Context, accessToken string) ([]model.FacebookPage, error) {
	var res struct {
		Data []model.FacebookPage `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "me/accounts", fieldsParams{
		Fields:      "id,name,access_token,instagram_business_account",
		AccessToken: accessToken,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("failed to get user pages: %w", err)
	}
	return res.Data, nil
}

func (c *Client) GetInstagramBusinessAccount(ctx context.Context, pageID, pageAccessToken string) (string, error) {
	var res struct {
		InstagramBusinessAccount *struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	err := c.do(ctx, http.MethodGet, url.PathEscape(pageID), fieldsParams{
		Fields:      "instagram_business_account",
		AccessToken: pageAccessToken,
	}, &res)
	if err != nil {
		return "", fmt.Errorf("failed to get Instagram account: %w", err)
	}
	if res.InstagramBusinessAccount == nil {
		return "", fmt.Errorf("no Instagram business account connected to page %s", pageID)
	}
	return res.InstagramBusinessAccount.ID, nil
}

func (c *Client) GetInstagramAccountInfo(ctx context.Context, instagramUserID, accessToken string) (*model.InstagramAccountInfo, error) {
	info := &model.InstagramAccountInfo{}
	err := c.do(ctx, http.MethodGet, url.PathEscape(instagramUserID), fieldsParams{
		Fields:      "id,username,name,profile_picture_url",
		AccessToken: accessToken,
	}, info)
	if err != nil {
		return nil, fmt.Errorf("failed to get Instagram account info: %w", err)
	}
	return info, nil
}

func (c *Client) GetPublishingLimit(ctx context.Context, instagramUserID, accessToken string) (*model.PublishingLimit, error) {
	var res struct {
		Data []struct {
			QuotaUsage int `json:"quota_usage"`
			Config     struct {
				QuotaTotal int `json:"quota_total"`
			} `json:"config"`
		} `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, url.PathEscape(instagramUserID)+"/content_publishing_limit", fieldsParams{
		Fields:      "quota_usage,config",
		AccessToken: accessToken,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("failed to check publishing limit: %w", err)
	}
	limit := &model.PublishingLimit{QuotaTotal: 25}
	if len(res.Data) > 0 {
		limit.QuotaUsage = res.Data[0].QuotaUsage
		if res.Data[0].Config.QuotaTotal > 0 {
			limit.QuotaTotal = res.Data[0].Config.QuotaTotal
		}
	}
	return limit, nil
}

type createContainerParams struct {
	ImageURL    string `url:"image_url"`
	Caption     string `url:"caption"`
	AccessToken string `url:"access_token"`
}

func (c *Client) CreateMediaContainer(ctx context.Context, instagramUserID, accessToken, imageURL, caption string) (string, error) {
	var res struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, url.PathEscape(instagramUserID)+"/media", createContainerParams{
		ImageURL:    imageURL,
		Caption:     caption,
		AccessToken: accessToken,
	}, &res)
	if err != nil {
		return "", fmt.Errorf("failed to create media container: %w", err)
	}
	if res.ID == "" {
		return "", fmt.Errorf("no container id returned")
	}
	logger.GetLogger().WithField("container_id", res.ID).Debug("Media container created")
	return res.ID, nil
}

func (c *Client) GetContainerStatus(ctx context.Context, containerID, accessToken string) (string, error) {
	var res struct {
		StatusCode string `json:"status_code"`
	}
	err := c.do(ctx, http.MethodGet, url.PathEscape(containerID), fieldsParams{
		Fields:      "status_code",
		AccessToken: accessToken,
	}, &res)
	if err != nil {
		return "", err
	}
	return res.StatusCode, nil
}

type publishParams struct {
	CreationID  string `url:"creation_id"`
	AccessToken string `url:"access_token"`
}

func (c *Client) PublishContainer(ctx context.Context, instagramUserID, accessToken, containerID string) (string, error) {
	var res struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, url.PathEscape(instagramUserID)+"/media_publish", publishParams{
		CreationID:  containerID,
		AccessToken: accessToken,
	}, &res)
	if err != nil {
		return "", fmt.Errorf("failed to publish media: %w", err)
	}
	if res.ID == "" {
		return "", fmt.Errorf("no media id returned")
	}
	return res.ID, nil
}

func (c *Client) GetMediaPermalink(ctx context.Context, mediaID, accessToken string) (string, error) {
	var res struct {
		Permalink string `json:"permalink"`
	}
	err := c.do(ctx, http.MethodGet, url.PathEscape(mediaID), fieldsParams{
		Fields:      "permalink",
		AccessToken: accessToken,
	}, &res)
	if err != nil {
		return "", err
	}
	return res.Permalink, nil
}
