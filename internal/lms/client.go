// Package lms 提供了一个与课程平台交互的客户端，是课程文件的唯一来源。
// 系统其它部分不直接访问课程平台，只通过这里拿到文件列表与原始字节。
package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"course-rag-go/internal/config"
)

// CourseFileInfo 描述课程平台上的一个文件。
type CourseFileInfo struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	UpdatedAt   time.Time `json:"updated_at"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content-type"`
}

// Client 是课程平台的 REST 客户端。
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient 创建一个新的课程平台客户端实例。
func NewClient(cfg config.LMSConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

// ListCourseFiles 列出一个课程名下的全部文件（含外部修改时间与下载地址）。
func (c *Client) ListCourseFiles(ctx context.Context, courseID string) ([]CourseFileInfo, error) {
	url := fmt.Sprintf("%s/api/v1/courses/%s/files?per_page=100", c.baseURL, courseID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用课程平台失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("课程平台返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	var files []CourseFileInfo
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("解析课程文件列表失败: %w", err)
	}
	return files, nil
}

// DownloadFile 下载一个文件的原始字节。调用方负责关闭返回的 ReadCloser。
func (c *Client) DownloadFile(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载课程文件失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("下载课程文件返回错误 [%d]: %s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}
