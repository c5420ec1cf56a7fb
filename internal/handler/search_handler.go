// Package handler 存放 Gin 的 HTTP 处理器，只做参数解析与响应组装。
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"course-rag-go/internal/service"
	"course-rag-go/pkg/log"
)

// SearchHandler 结构体定义了检索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search 是处理课程内语义检索请求的 Gin 处理函数。
func (h *SearchHandler) Search(c *gin.Context) {
	courseID := c.Query("courseId")
	query := c.Query("query")
	log.Infof("[SearchHandler] 收到检索请求, course: %s, query: %s", courseID, query)

	if courseID == "" || query == "" {
		log.Warnf("[SearchHandler] 检索请求失败: courseId 或 query 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}
	topKStr := c.DefaultQuery("topK", "10")
	topK, err := strconv.Atoi(topKStr)
	if err != nil || topK <= 0 {
		topK = 10
	}

	results, err := h.searchService.Search(c.Request.Context(), courseID, query, topK)
	if err != nil {
		log.Errorf("[SearchHandler] 检索服务返回错误, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "检索失败"})
		return
	}

	log.Infof("[SearchHandler] 检索成功, course: %s, 返回 %d 条结果", courseID, len(results))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}
