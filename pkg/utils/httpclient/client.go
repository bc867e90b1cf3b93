/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Result carries one HTTP response with its body fully read.
type Result struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Success reports whether the status code is 2xx.
func (r *Result) Success() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// FilePart is one file attached to a multipart request.
type FilePart struct {
	FieldName string
	FileName  string
	Reader    io.Reader
}

// Client is a thin wrapper over http.Client with a fixed timeout.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client whose requests time out after the given duration.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Post issues a POST request with the given body and content type.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req)
}

// PostMultipart issues a multipart/form-data POST carrying the given form
// fields and file parts. The whole body is buffered before sending.
func (c *Client) PostMultipart(ctx context.Context, url string, fields map[string]string, files []FilePart) (*Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, err
		}
		if _, err = io.Copy(part, file.Reader); err != nil {
			return nil, fmt.Errorf("failed to read file %s, err: %v", file.FileName, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Result{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}
