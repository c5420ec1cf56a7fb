package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-rag-go/internal/service"
	"course-rag-go/pkg/log"
)

// DocumentHandler 结构体定义了文档删除相关的处理器。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// DeleteDocument 删除一个课程文档的全部索引痕迹。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	courseID := c.Query("courseId")
	fileID := c.Param("fileId")
	log.Infof("[DocumentHandler] 收到文档删除请求, course: %s, file: %s", courseID, fileID)

	if courseID == "" || fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的删除参数"})
		return
	}

	if err := h.documentService.DeleteDocument(c.Request.Context(), courseID, fileID); err != nil {
		log.Errorf("[DocumentHandler] 文档删除失败, course: %s, file: %s, error: %v", courseID, fileID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "文档删除失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": nil, "message": "success"})
}
