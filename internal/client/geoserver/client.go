package geoserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client drives the GeoServer REST admin API. Publish is the only entry
// point the sync pipeline uses: it makes the layer serve the current store
// contents, creating the workspace/datastore/feature-type chain on first
// use and recalculating bounds on subsequent runs.
type Client struct {
	base       string
	workspace  string
	datastore  string
	username   string
	password   string
	httpClient *http.Client

	// Connection parameters GeoServer needs to reach the PostGIS store.
	DBHost     string
	DBPort     string
	DBName     string
	DBSchema   string
	DBUser     string
	DBPassword string
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("geoserver error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, base, workspace, datastore, username, password string) *Client {
	if base == "" {
		base = "http://localhost:8080/geoserver"
	}
	return &Client{
		base:       strings.TrimRight(base, "/"),
		workspace:  workspace,
		datastore:  datastore,
		username:   username,
		password:   password,
		httpClient: httpClient,
	}
}

// Publish refreshes the named layer against the current store contents.
func (c *Client) Publish(ctx context.Context, layer string) error {
	if layer == "" {
		return fmt.Errorf("layer name is required")
	}
	if err := c.ensureWorkspace(ctx); err != nil {
		return err
	}
	if err := c.ensureDatastore(ctx); err != nil {
		return err
	}
	return c.ensureFeatureType(ctx, layer)
}

func (c *Client) ensureWorkspace(ctx context.Context) error {
	exists, err := c.exists(ctx, "/rest/workspaces/"+c.workspace)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	payload := map[string]any{
		"workspace": map[string]any{"name": c.workspace},
	}
	return c.do(ctx, http.MethodPost, "/rest/workspaces", payload)
}

func (c *Client) ensureDatastore(ctx context.Context) error {
	path := fmt.Sprintf("/rest/workspaces/%s/datastores/%s", c.workspace, c.datastore)
	exists, err := c.exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	payload := map[string]any{
		"dataStore": map[string]any{
			"name":    c.datastore,
			"type":    "PostGIS",
			"enabled": true,
			"connectionParameters": map[string]any{
				"entry": []map[string]string{
					{"@key": "host", "$": c.DBHost},
					{"@key": "port", "$": c.DBPort},
					{"@key": "database", "$": c.DBName},
					{"@key": "schema", "$": c.DBSchema},
					{"@key": "user", "$": c.DBUser},
					{"@key": "passwd", "$": c.DBPassword},
					{"@key": "dbtype", "$": "postgis"},
				},
			},
		},
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/rest/workspaces/%s/datastores", c.workspace), payload)
}

func (c *Client) ensureFeatureType(ctx context.Context, layer string) error {
	path := fmt.Sprintf("/rest/workspaces/%s/datastores/%s/featuretypes/%s",
		c.workspace, c.datastore, layer)
	exists, err := c.exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		// Recalculate bounds so newly synced rows show up.
		return c.do(ctx, http.MethodPut,
			path+"?recalculate=nativebbox,latlonbbox",
			map[string]any{"featureType": map[string]any{"name": layer, "enabled": true}})
	}
	payload := map[string]any{
		"featureType": map[string]any{
			"name":       layer,
			"nativeName": "service_requests",
			"title":      "St. Louis 311 Service Requests",
			"enabled":    true,
			"srs":        "EPSG:3857",
		},
	}
	return c.do(ctx, http.MethodPost,
		fmt.Sprintf("/rest/workspaces/%s/datastores/%s/featuretypes", c.workspace, c.datastore),
		payload)
}

func (c *Client) exists(ctx context.Context, path string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return false, err
	}
	c.decorate(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, &APIError{Status: resp.StatusCode}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")
}
