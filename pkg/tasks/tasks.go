// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// CourseIndexTask represents the data structure for a course file indexing job.
type CourseIndexTask struct {
	CourseID         string    `json:"course_id"`
	FileID           string    `json:"file_id"`
	FileName         string    `json:"file_name"`
	DownloadURL      string    `json:"download_url"`
	SourceModifiedAt time.Time `json:"source_modified_at"`
}
