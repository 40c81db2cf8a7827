// Package verify submits contract source to an Etherscan-compatible
// explorer and waits for the verification verdict.
package verify

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Errors.
var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrNoAPIKey           = errors.New("no explorer API key")
)

// Source is the compiled contract submitted for verification.
type Source struct {
	ContractName    string
	Code            string
	CompilerVersion string
	Optimize        bool
	Runs            int
}

// Client talks to one explorer API endpoint.
type Client struct {
	apiURL string
	apiKey string
	src    Source
	client *http.Client
	poll   time.Duration
	log    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// WithPollInterval sets how often the verdict is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.poll = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a verifier for apiURL (e.g. https://api-sepolia.etherscan.io/api).
func New(apiURL, apiKey string, src Source, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		src:    src,
		client: &http.Client{Timeout: 15 * time.Second},
		poll:   5 * time.Second,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the Etherscan API response. Result is a GUID or a message.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Submit posts the source for the contract at address. constructorArgs is
// the ABI-encoded constructor input.
func (c *Client) Submit(ctx context.Context, address common.Address, constructorArgs []byte) (string, error) {
	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", address.Hex())
	form.Set("sourceCode", c.src.Code)
	form.Set("codeformat", "solidity-single-file")
	form.Set("contractname", c.src.ContractName)
	form.Set("compilerversion", c.src.CompilerVersion)
	form.Set("optimizationUsed", boolFlag(c.src.Optimize))
	form.Set("runs", strconv.Itoa(c.src.Runs))
	// the explorer's parameter name is misspelled
	form.Set("constructorArguements", hex.EncodeToString(constructorArgs))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	env, err := c.do(req)
	if err != nil {
		return "", err
	}
	if env.Status != "1" {
		return "", fmt.Errorf("%w: %s", ErrVerificationFailed, messageOf(env))
	}
	return env.Result, nil
}

// Status returns the explorer's verdict for a submission: done reports
// whether polling can stop.
func (c *Client) Status(ctx context.Context, guid string) (done bool, err error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("module", "contract")
	q.Set("action", "checkverifystatus")
	q.Set("guid", guid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}
	env, err := c.do(req)
	if err != nil {
		return false, err
	}

	msg := messageOf(env)
	switch {
	case env.Status == "1":
		return true, nil
	case isAlreadyVerified(msg):
		return true, nil
	case strings.Contains(strings.ToLower(msg), "pending"):
		return false, nil
	default:
		return true, fmt.Errorf("%w: %s", ErrVerificationFailed, msg)
	}
}

// Verify submits the source and polls until the explorer decides. A
// contract that is already verified counts as success.
func (c *Client) Verify(ctx context.Context, address common.Address, constructorArgs []byte) error {
	c.log.Info("verifying contract", zap.String("address", address.Hex()), zap.String("contract", c.src.ContractName))

	guid, err := c.Submit(ctx, address, constructorArgs)
	if err != nil {
		if isAlreadyVerified(err.Error()) {
			c.log.Info("already verified", zap.String("address", address.Hex()))
			return nil
		}
		return err
	}

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		done, err := c.Status(ctx, guid)
		if done {
			if err == nil {
				c.log.Info("contract verified", zap.String("address", address.Hex()), zap.String("guid", guid))
			}
			return err
		}
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ConstructorArgs ABI-encodes values against the constructor in entries.
func ConstructorArgs(entries []contract.ABIEntry, values ...any) ([]byte, error) {
	data, err := contract.FormatJSON(entries)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return parsed.Constructor.Inputs.Pack(values...)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned HTTP %d", resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("parsing explorer response: %w", err)
	}
	return &env, nil
}

func messageOf(env *envelope) string {
	if env.Result != "" {
		return env.Result
	}
	return env.Message
}

func isAlreadyVerified(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already verified")
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
