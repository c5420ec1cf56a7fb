package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-rag-go/internal/service"
	"course-rag-go/pkg/log"
)

// CourseHandler 结构体定义了课程文件同步相关的处理器。
type CourseHandler struct {
	courseService service.CourseService
}

// NewCourseHandler 创建一个新的 CourseHandler 实例。
func NewCourseHandler(courseService service.CourseService) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
	}
}

// SyncCourse 触发一个课程的增量同步：扫描课程文件并为新增或已变更的
// 文件投递索引任务。同步本身是异步的，接口只返回入队的任务数。
func (h *CourseHandler) SyncCourse(c *gin.Context) {
	courseID := c.Param("courseId")
	log.Infof("[CourseHandler] 收到课程同步请求, course: %s", courseID)

	enqueued, err := h.courseService.SyncCourse(c.Request.Context(), courseID)
	if err != nil {
		log.Errorf("[CourseHandler] 课程同步失败, course: %s, error: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "课程同步失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"enqueued": enqueued}, "message": "success"})
}

// ListCourseFiles 列出一个课程已登记的文件及其索引状态。
func (h *CourseHandler) ListCourseFiles(c *gin.Context) {
	courseID := c.Param("courseId")

	files, err := h.courseService.ListCourseFiles(c.Request.Context(), courseID)
	if err != nil {
		log.Errorf("[CourseHandler] 查询课程文件失败, course: %s, error: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询课程文件失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": files, "message": "success"})
}
