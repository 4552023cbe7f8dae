package credstore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
)

const userByWalletQuery = `
query ($wallet: String!) {
  userByWallet(wallet: $wallet) {
    id
    gatewayId
  }
}`

const earnedCredentialsQuery = `
query ($dataModelIds: [String!]!, $userId: String!, $take: Int!) {
  earnedCredentialsByIdByDataModels(dataModelIds: $dataModelIds, id: $userId, take: $take) {
    id
    title
    description
    claim
    tags
    dataModel {
      id
    }
  }
}`

const createCredentialMutation = `
mutation ($recipient: String!, $title: String!, $description: String!, $image: String, $claim: JSON!, $tags: [String!]!, $dataModelId: String!, $orgId: String, $expirationDate: DateTime) {
  createCredential(
    createCredentialInput: {
      recipientUserIdentity: $recipient
      title: $title
      description: $description
      image: $image
      claim: $claim
      tags: $tags
      dataModelId: $dataModelId
      issuerOrganizationId: $orgId
      expirationDate: $expirationDate
    }
  ) {
    id
    title
    claim
  }
}`

const updateCredentialMutation = `
mutation ($id: String!, $title: String, $description: String, $image: String, $claim: JSON!) {
  updateCredential(
    updateCredentialInput: {
      id: $id
      title: $title
      description: $description
      image: $image
      claim: $claim
    }
  ) {
    id
    title
    claim
  }
}`

// Client talks to the credential store's GraphQL endpoint. It is safe for
// concurrent use by multiple workers.
type Client struct {
	gql    *graphql.Client
	apiKey string
	jwt    string
}

// NewClient constructs a store client for the given endpoint. The API key and
// JWT are attached to every request.
func NewClient(endpoint, apiKey, jwt string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		gql:    graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient)),
		apiKey: apiKey,
		jwt:    jwt,
	}
}

func (c *Client) newRequest(query string) *graphql.Request {
	req := graphql.NewRequest(query)
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.jwt)
	}
	return req
}

// UserByWallet implements Store.
func (c *Client) UserByWallet(ctx context.Context, wallet string) (*User, error) {
	req := c.newRequest(userByWalletQuery)
	req.Var("wallet", wallet)

	var resp struct {
		UserByWallet *User `json:"userByWallet"`
	}
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("credstore: user by wallet %s: %w", wallet, err)
	}
	if resp.UserByWallet == nil || resp.UserByWallet.ID == "" {
		return nil, fmt.Errorf("wallet %s: %w", wallet, ErrUserNotFound)
	}
	return resp.UserByWallet, nil
}

type credentialPayload struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Claim       map[string]any `json:"claim"`
	Tags        []string       `json:"tags"`
	DataModel   struct {
		ID string `json:"id"`
	} `json:"dataModel"`
}

func (p credentialPayload) toCredential() Credential {
	return Credential{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		DataModelID: p.DataModel.ID,
		Claim:       p.Claim,
		Tags:        p.Tags,
	}
}

// EarnedCredentials implements Store.
func (c *Client) EarnedCredentials(ctx context.Context, userID string, dataModelIDs []string, limit int) ([]Credential, error) {
	if limit <= 0 {
		limit = 100
	}
	req := c.newRequest(earnedCredentialsQuery)
	req.Var("userId", userID)
	req.Var("dataModelIds", dataModelIDs)
	req.Var("take", limit)

	var resp struct {
		Earned []credentialPayload `json:"earnedCredentialsByIdByDataModels"`
	}
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("credstore: earned credentials for user %s: %w", userID, err)
	}
	credentials := make([]Credential, 0, len(resp.Earned))
	for _, payload := range resp.Earned {
		credentials = append(credentials, payload.toCredential())
	}
	return credentials, nil
}

// CreateCredential implements Store.
func (c *Client) CreateCredential(ctx context.Context, input CreateCredentialInput) (*Credential, error) {
	req := c.newRequest(createCredentialMutation)
	req.Var("recipient", input.Recipient)
	req.Var("title", input.Title)
	req.Var("description", input.Description)
	req.Var("image", input.Image)
	req.Var("claim", input.Claim)
	req.Var("tags", input.Tags)
	req.Var("dataModelId", input.DataModelID)
	req.Var("orgId", input.OrgID)
	if input.Expiration != nil {
		req.Var("expirationDate", input.Expiration.UTC().Format(time.RFC3339))
	}

	var resp struct {
		CreateCredential *credentialPayload `json:"createCredential"`
	}
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("credstore: create credential %q for %s: %w", input.Title, input.Recipient, err)
	}
	if resp.CreateCredential == nil {
		return nil, fmt.Errorf("credstore: create credential %q: empty response", input.Title)
	}
	credential := resp.CreateCredential.toCredential()
	credential.DataModelID = input.DataModelID
	return &credential, nil
}

// UpdateCredential implements Store.
func (c *Client) UpdateCredential(ctx context.Context, input UpdateCredentialInput) (*Credential, error) {
	req := c.newRequest(updateCredentialMutation)
	req.Var("id", input.ID)
	req.Var("claim", input.Claim)
	if input.Title != "" {
		req.Var("title", input.Title)
	}
	if input.Description != "" {
		req.Var("description", input.Description)
	}
	if input.Image != "" {
		req.Var("image", input.Image)
	}

	var resp struct {
		UpdateCredential *credentialPayload `json:"updateCredential"`
	}
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("credstore: update credential %s: %w", input.ID, err)
	}
	if resp.UpdateCredential == nil {
		return nil, fmt.Errorf("credstore: update credential %s: empty response", input.ID)
	}
	credential := resp.UpdateCredential.toCredential()
	return &credential, nil
}

var _ Store = (*Client)(nil)
