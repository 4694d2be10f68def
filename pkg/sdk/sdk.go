package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// FileSummary is one finalized asset as the listing endpoint reports it.
type FileSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ContentType string    `json:"content_type"`
	Checksum    *string   `json:"checksum,omitempty"`
	URL         string    `json:"url"`
}

type commonResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

type apiError struct {
	ErrCode string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

// Files lists finalized assets; search optionally filters by name substring.
func (c *Client) Files(search string) ([]FileSummary, error) {
	endpoint := c.baseURL + "/files"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(search)
	}

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer resp.Body.Close()

	var common commonResponse
	if err := json.NewDecoder(resp.Body).Decode(&common); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if common.Error != nil {
		return nil, common.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("list files failed with status %d", resp.StatusCode)
	}

	var files []FileSummary
	if err := json.Unmarshal(common.Data, &files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}

	return files, nil
}

// Delete removes a finalized asset.
func (c *Client) Delete(id string) error {
	httpReq, err := http.NewRequest(http.MethodDelete, c.baseURL+"/files/"+id, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var common commonResponse
	if err := json.NewDecoder(resp.Body).Decode(&common); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if common.Error != nil {
		return common.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("delete failed with status %d", resp.StatusCode)
	}

	return nil
}
