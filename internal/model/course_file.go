// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 课程文件的索引状态。
const (
	FileStatusPending  = 0 // 已登记，等待流水线处理
	FileStatusIndexed  = 1 // 已完成抽取、向量化并写入向量库
	FileStatusFailed   = 2 // 处理失败
	FileStatusSkipped  = 3 // 源端未变更，跳过处理
)

// CourseFile 定义了 course_files 表的 ORM 模型。
// 它记录每个课程文件的元数据与索引状态；向量片段本身存在
// 按课程划分的 pgvector 表里，这里只是可读的元数据账目。
type CourseFile struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID         string     `gorm:"type:varchar(64);not null;uniqueIndex:uniq_course_file" json:"courseId"`
	FileID           string     `gorm:"type:varchar(128);not null;uniqueIndex:uniq_course_file" json:"fileId"`
	FileName         string     `gorm:"type:varchar(255);not null" json:"fileName"`
	Status           int        `gorm:"type:smallint;not null;default:0" json:"status"`
	SourceModifiedAt time.Time  `gorm:"not null" json:"sourceModifiedAt"`
	IndexedAt        *time.Time `gorm:"default:null" json:"indexedAt"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (CourseFile) TableName() string {
	return "course_files"
}
