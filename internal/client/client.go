// Package client is the typed REST client the CLI and the terminal shell
// use to talk to a running daemon.
package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/config"
	"github.com/fetchd-app/fetchd/internal/download"
	"github.com/fetchd-app/fetchd/internal/server"
	"github.com/fetchd-app/fetchd/internal/service"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	resty *resty.Client
}

// New builds a client against baseURL, e.g. "http://127.0.0.1:9988".
func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", "fetchd-cli").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	r.AddRetryCondition(func(resp *resty.Response, err error) bool {
		return err == nil && resp.StatusCode() >= 500
	})
	return &Client{resty: r}
}

// Discover locates the running daemon through its port file.
func Discover() (*Client, error) {
	portFile := filepath.Join(config.FetchdDir(), "port")
	raw, err := os.ReadFile(portFile)
	if err != nil {
		return nil, fmt.Errorf("no running daemon found (start one with `fetchd`): %w", err)
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("reading port file %q: %w", portFile, err)
	}
	return New(fmt.Sprintf("http://127.0.0.1:%d", port)), nil
}

// Create submits a URL and returns the created download's metadata.
func (c *Client) Create(url string) (download.Metadata, error) {
	var metadata download.Metadata
	err := c.post(server.BasePath, url, &metadata)
	return metadata, err
}

// Metadata lists all downloads.
func (c *Client) Metadata() ([]download.Metadata, error) {
	var result []download.Metadata
	err := c.get(server.BasePath+"/metadata", &result)
	return result, err
}

// States lists the current state of all downloads.
func (c *Client) States() ([]download.StateEntry, error) {
	var result []download.StateEntry
	err := c.get(server.BasePath+"/state", &result)
	return result, err
}

// Get returns metadata and state of one download.
func (c *Client) Get(id uuid.UUID) (service.Detail, error) {
	var detail service.Detail
	err := c.get(server.BasePath+"/"+id.String(), &detail)
	return detail, err
}

func (c *Client) Start(id uuid.UUID) error {
	return c.get(server.BasePath+"/"+id.String()+"/start", nil)
}

func (c *Client) Resume(id uuid.UUID) error {
	return c.get(server.BasePath+"/"+id.String()+"/resume", nil)
}

func (c *Client) Pause(id uuid.UUID) error {
	return c.get(server.BasePath+"/"+id.String()+"/pause", nil)
}

func (c *Client) Delete(id uuid.UUID, deleteFile bool) error {
	resp, err := c.resty.R().
		SetQueryParam("delete_file", strconv.FormatBool(deleteFile)).
		Delete(server.BasePath + "/" + id.String())
	if err != nil {
		return err
	}
	return checkResponse(resp, nil)
}

func (c *Client) StartAll() error {
	return c.get(server.BasePath+"/start_all", nil)
}

func (c *Client) StopAll() error {
	return c.get(server.BasePath+"/stop_all", nil)
}

// Health probes the daemon.
func (c *Client) Health() error {
	return c.get("/health", nil)
}

func (c *Client) get(path string, out any) error {
	resp, err := c.resty.R().Get(path)
	if err != nil {
		return err
	}
	return checkResponse(resp, out)
}

func (c *Client) post(path, body string, out any) error {
	resp, err := c.resty.R().SetBody(body).Post(path)
	if err != nil {
		return err
	}
	return checkResponse(resp, out)
}

func checkResponse(resp *resty.Response, out any) error {
	if resp.StatusCode() >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(resp.Body(), &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode())
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}
