package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// callResult is the tools/call result shape: content items whose text field
// carries a nested JSON document.
type callResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AttachmentURL asks the API for a signed download URL for an attachment.
// The signed URL sits in a JSON document nested inside the first content
// item's text field, under either "url" or "signed_url".
func (c *Client) AttachmentURL(ctx context.Context, attachmentID string) (string, error) {
	raw, err := c.Call(ctx, "tools/call", map[string]any{
		"name": "get_attachment_url",
		"arguments": map[string]any{
			"attachment_id": attachmentID,
		},
	})
	if err != nil {
		return "", err
	}

	var result callResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w: %s", err, raw)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("failed to parse response: no content: %s", raw)
	}

	var doc struct {
		URL       string `json:"url"`
		SignedURL string `json:"signed_url"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &doc); err != nil {
		return "", fmt.Errorf("failed to parse response: %w: %s", err, raw)
	}

	signed := doc.URL
	if signed == "" {
		signed = doc.SignedURL
	}
	if signed == "" {
		return "", fmt.Errorf("failed to parse response: no url in payload: %s", raw)
	}
	return signed, nil
}
